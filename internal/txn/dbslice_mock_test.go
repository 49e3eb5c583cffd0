package txn

// Hand-maintained in the shape mockgen would generate for DbSlice
// (`mockgen -source=collaborators.go -package=txn DbSlice`); kept as a
// checked-in file rather than a go:generate step since no generator runs
// in this repository's build.

import (
	"reflect"

	"github.com/golang/mock/gomock"
)

type MockDbSlice struct {
	ctrl     *gomock.Controller
	recorder *MockDbSliceMockRecorder
}

type MockDbSliceMockRecorder struct{ mock *MockDbSlice }

func NewMockDbSlice(ctrl *gomock.Controller) *MockDbSlice {
	m := &MockDbSlice{ctrl: ctrl}
	m.recorder = &MockDbSliceMockRecorder{m}
	return m
}

func (m *MockDbSlice) EXPECT() *MockDbSliceMockRecorder { return m.recorder }

func (m *MockDbSlice) CheckLock(mode Mode, keys [][]byte) bool {
	ret := m.ctrl.Call(m, "CheckLock", mode, keys)
	return ret[0].(bool)
}

func (mr *MockDbSliceMockRecorder) CheckLock(mode, keys any) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CheckLock", reflect.TypeOf((*MockDbSlice)(nil).CheckLock), mode, keys)
}

func (m *MockDbSlice) Acquire(mode Mode, keys [][]byte) bool {
	ret := m.ctrl.Call(m, "Acquire", mode, keys)
	return ret[0].(bool)
}

func (mr *MockDbSliceMockRecorder) Acquire(mode, keys any) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Acquire", reflect.TypeOf((*MockDbSlice)(nil).Acquire), mode, keys)
}

func (m *MockDbSlice) Release(mode Mode, keys [][]byte) {
	m.ctrl.Call(m, "Release", mode, keys)
}

func (mr *MockDbSliceMockRecorder) Release(mode, keys any) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Release", reflect.TypeOf((*MockDbSlice)(nil).Release), mode, keys)
}

func (m *MockDbSlice) ReleaseCount(mode Mode, key []byte, count int) {
	m.ctrl.Call(m, "ReleaseCount", mode, key, count)
}

func (mr *MockDbSliceMockRecorder) ReleaseCount(mode, key, count any) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReleaseCount", reflect.TypeOf((*MockDbSlice)(nil).ReleaseCount), mode, key, count)
}
