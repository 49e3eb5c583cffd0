package logging_test

import (
	"testing"

	"github.com/zhenli1347/dragonfly/internal/logging"
)

func TestNewReturnsUsableLogger(t *testing.T) {
	log := logging.New()
	defer log.Sync()
	if log == nil {
		t.Fatal("New() returned nil")
	}
	log.Info("smoke test")
}

func TestNewDevelopmentReturnsUsableLogger(t *testing.T) {
	log := logging.NewDevelopment()
	defer log.Sync()
	if log == nil {
		t.Fatal("NewDevelopment() returned nil")
	}
	log.Info("smoke test")
}
