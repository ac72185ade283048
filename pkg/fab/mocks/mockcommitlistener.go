/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

type txRegistration struct {
	txID string
	ch   chan *fab.TxStatusEvent
}

// MockCommitListener is a fab.CommitListener whose events are pushed by the test
type MockCommitListener struct {
	RegisterErr error

	mutex         sync.Mutex
	registrations map[string]*txRegistration
	registered    []string
	unregistered  []string
}

// NewMockCommitListener returns a new mock commit listener
func NewMockCommitListener() *MockCommitListener {
	return &MockCommitListener{registrations: make(map[string]*txRegistration)}
}

// RegisterTxStatus registers for the transaction's status
func (l *MockCommitListener) RegisterTxStatus(txID string) (fab.Registration, <-chan *fab.TxStatusEvent, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.RegisterErr != nil {
		return nil, nil, l.RegisterErr
	}
	if _, ok := l.registrations[txID]; ok {
		return nil, nil, errors.Errorf("registration already exists for TX ID [%s]", txID)
	}

	reg := &txRegistration{txID: txID, ch: make(chan *fab.TxStatusEvent, 1)}
	l.registrations[txID] = reg
	l.registered = append(l.registered, txID)
	return reg, reg.ch, nil
}

// Unregister removes the registration and closes its channel
func (l *MockCommitListener) Unregister(r fab.Registration) {
	reg, ok := r.(*txRegistration)
	if !ok {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if current, ok := l.registrations[reg.txID]; ok && current == reg {
		delete(l.registrations, reg.txID)
		close(reg.ch)
		l.unregistered = append(l.unregistered, reg.txID)
	}
}

// Notify delivers the event to the transaction's registration. It returns
// false if nobody is registered for the transaction.
func (l *MockCommitListener) Notify(event *fab.TxStatusEvent) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	reg, ok := l.registrations[event.TxID]
	if !ok {
		return false
	}
	select {
	case reg.ch <- event:
		return true
	default:
		return false
	}
}

// IsRegistered returns true if txID is currently registered
func (l *MockCommitListener) IsRegistered(txID string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	_, ok := l.registrations[txID]
	return ok
}

// Registered returns every transaction ID that was registered, in order
func (l *MockCommitListener) Registered() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]string(nil), l.registered...)
}

// Unregistered returns every transaction ID that was unregistered, in order
func (l *MockCommitListener) Unregistered() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]string(nil), l.unregistered...)
}
