package crosstab

import (
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockNotifier is a hand-written stand-in for what mockgen would
// generate for the Notifier interface, following the shape
// service/inoreader_service_test.go consumes from its own generated
// mocks package (NewMockInoreaderClient(ctrl), .EXPECT(), recorder
// methods returning *gomock.Call).
type MockNotifier struct {
	ctrl     *gomock.Controller
	recorder *MockNotifierMockRecorder
}

type MockNotifierMockRecorder struct {
	mock *MockNotifier
}

func NewMockNotifier(ctrl *gomock.Controller) *MockNotifier {
	m := &MockNotifier{ctrl: ctrl}
	m.recorder = &MockNotifierMockRecorder{m}
	return m
}

func (m *MockNotifier) EXPECT() *MockNotifierMockRecorder {
	return m.recorder
}

func (m *MockNotifier) Subscribe(onChange func(key *string, oldValue, newValue *string)) (unsubscribe func()) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Subscribe", onChange)
	ret0, _ := ret[0].(func())
	return ret0
}

func (mr *MockNotifierMockRecorder) Subscribe(onChange any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Subscribe", reflect.TypeOf((*MockNotifier)(nil).Subscribe), onChange)
}
