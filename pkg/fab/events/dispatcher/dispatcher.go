/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher routes filtered block events to transaction status
// registrations. Registrations and blocks are queued on one channel and
// handled by a single goroutine, so a registration made before a block is
// published always sees that block.
package dispatcher

import (
	"math"
	"sync/atomic"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/options"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

var logger = logging.NewLogger("fabstub/fab")

const (
	stateInitial int32 = iota
	stateStarted
	stateStopped
)

// noBlock is the value of lastBlockNum before any block arrived.
const noBlock = math.MaxUint64

// Dispatcher delivers the validation result of each registered
// transaction, once, from the first filtered block that contains it.
type Dispatcher struct {
	// accessed atomically; first for 64-bit alignment on 32-bit platforms
	lastBlockNum uint64
	state        int32

	params
	eventch chan interface{}
	done    chan struct{} // closed once the dispatch loop has stopped

	// owned by the dispatch goroutine
	txRegistrations map[string]*TxStatusReg
}

// New creates a dispatcher. It accepts events once started.
func New(opts ...options.Opt) *Dispatcher {
	p := defaultParams()
	options.Apply(opts, p)

	return &Dispatcher{
		lastBlockNum:    noBlock,
		params:          *p,
		eventch:         make(chan interface{}, p.eventConsumerBufferSize),
		done:            make(chan struct{}),
		txRegistrations: make(map[string]*TxStatusReg),
	}
}

// Start launches the dispatch goroutine. A dispatcher can be started once.
func (ed *Dispatcher) Start() error {
	if !atomic.CompareAndSwapInt32(&ed.state, stateInitial, stateStarted) {
		return errors.New("cannot start dispatcher since it's not in its initial state")
	}

	go func() {
		for e := range ed.eventch {
			if !ed.dispatch(e) {
				break
			}
		}
		logger.Debug("event dispatcher exited")
	}()
	return nil
}

// Stop stops the dispatcher and closes every registration channel.
func (ed *Dispatcher) Stop() error {
	errch := make(chan error, 1)
	if err := ed.submit(&stop{errch: errch}); err != nil {
		return err
	}

	select {
	case err := <-errch:
		return err
	case <-time.After(ed.respTimeout):
		return errors.New("timeout waiting for dispatcher to stop")
	}
}

// LastBlockNum returns the number of the newest block received, or
// math.MaxUint64 before the first one.
func (ed *Dispatcher) LastBlockNum() uint64 {
	return atomic.LoadUint64(&ed.lastBlockNum)
}

// RegisterTxStatus registers for the status of the given transaction. The
// event channel receives exactly one event, after which the registration is
// removed and the channel closed.
func (ed *Dispatcher) RegisterTxStatus(txID string) (fab.Registration, <-chan *fab.TxStatusEvent, error) {
	statusch := make(chan *fab.TxStatusEvent, 1)
	regch := make(chan fab.Registration, 1)
	errch := make(chan error, 1)

	req := &registerTxStatus{
		reg:   &TxStatusReg{TxID: txID, Eventch: statusch},
		regch: regch,
		errch: errch,
	}
	if err := ed.submit(req); err != nil {
		return nil, nil, err
	}

	select {
	case reg := <-regch:
		return reg, statusch, nil
	case err := <-errch:
		return nil, nil, err
	case <-time.After(ed.respTimeout):
		return nil, nil, errors.New("timeout waiting for TxStatus registration response")
	}
}

// Unregister removes the registration and closes its event channel. It is
// a no-op for a registration already removed.
func (ed *Dispatcher) Unregister(reg fab.Registration) {
	if err := ed.submit(&unregister{reg: reg}); err != nil {
		logger.Debugf("Unable to unregister: %s", err)
	}
}

// PublishFilteredBlock queues a block received from sourceURL.
func (ed *Dispatcher) PublishFilteredBlock(fblock *pb.FilteredBlock, sourceURL string) error {
	return ed.submit(&filteredBlock{block: fblock, sourceURL: sourceURL})
}

// RegistrationInfo returns the number of live registrations, counted after
// every previously queued event was handled.
func (ed *Dispatcher) RegistrationInfo() (*RegistrationInfo, error) {
	infoch := make(chan *RegistrationInfo, 1)
	if err := ed.submit(&registrationInfo{infoch: infoch}); err != nil {
		return nil, err
	}

	select {
	case info := <-infoch:
		return info, nil
	case <-time.After(ed.respTimeout):
		return nil, errors.New("timeout waiting for registration info")
	}
}

func (ed *Dispatcher) submit(e interface{}) error {
	if state := atomic.LoadInt32(&ed.state); state != stateStarted {
		return errors.Errorf("dispatcher not started - Current state [%d]", state)
	}

	// the loop may stop between the state check and the send
	select {
	case ed.eventch <- e:
		return nil
	case <-ed.done:
		return errors.New("dispatcher stopped")
	}
}

// dispatch handles one event and reports whether the loop should go on.
func (ed *Dispatcher) dispatch(e interface{}) bool {
	switch evt := e.(type) {
	case *registerTxStatus:
		ed.register(evt)
	case *unregister:
		ed.unregister(evt.reg)
	case *filteredBlock:
		ed.publish(evt.block, evt.sourceURL)
	case *registrationInfo:
		n := len(ed.txRegistrations)
		evt.infoch <- &RegistrationInfo{TotalRegistrations: n, NumTxStatusRegistrations: n}
	case *stop:
		return !ed.stop(evt.errch)
	default:
		logger.Errorf("Handler not found for: %T", e)
	}
	return true
}

func (ed *Dispatcher) register(evt *registerTxStatus) {
	txID := evt.reg.TxID
	if _, exists := ed.txRegistrations[txID]; exists {
		evt.errch <- errors.Errorf("registration already exists for TX ID [%s]", txID)
		return
	}
	ed.txRegistrations[txID] = evt.reg
	evt.regch <- evt.reg
}

func (ed *Dispatcher) unregister(r fab.Registration) {
	reg, ok := r.(*TxStatusReg)
	if !ok {
		logger.Warnf("Error in unregister: Unsupported registration type: %T", r)
		return
	}

	// the registration may have been replaced after its event was delivered
	if current, exists := ed.txRegistrations[reg.TxID]; !exists || current != reg {
		logger.Debugf("The registration for TxID [%s] was already removed", reg.TxID)
		return
	}
	ed.remove(reg)
}

func (ed *Dispatcher) remove(reg *TxStatusReg) {
	delete(ed.txRegistrations, reg.TxID)
	close(reg.Eventch)
}

// stop closes every registration and reports whether the dispatcher
// stopped.
func (ed *Dispatcher) stop(errch chan<- error) bool {
	if !atomic.CompareAndSwapInt32(&ed.state, stateStarted, stateStopped) {
		errch <- errors.New("dispatcher already stopped")
		return false
	}

	logger.Debugf("stopping dispatcher, closing %d registration(s)", len(ed.txRegistrations))
	for _, reg := range ed.txRegistrations {
		ed.remove(reg)
	}
	close(ed.done)
	errch <- nil
	return true
}

func (ed *Dispatcher) publish(fblock *pb.FilteredBlock, sourceURL string) {
	if fblock == nil {
		logger.Warn("Filtered block is nil. Event will not be published")
		return
	}

	// the deliver stream must not go backwards; a replayed block after a
	// reconnect is dropped
	last := atomic.LoadUint64(&ed.lastBlockNum)
	if last != noBlock && fblock.Number <= last {
		logger.Warnf("Ignoring filtered block #%d, already at #%d", fblock.Number, last)
		return
	}
	atomic.StoreUint64(&ed.lastBlockNum, fblock.Number)

	logger.Debugf("Publishing filtered block event #%d from %s", fblock.Number, sourceURL)

	for _, tx := range fblock.FilteredTransactions {
		reg, ok := ed.txRegistrations[tx.Txid]
		if !ok {
			continue
		}
		reg.Eventch <- &fab.TxStatusEvent{
			TxID:             tx.Txid,
			TxValidationCode: tx.TxValidationCode,
			BlockNumber:      fblock.Number,
			SourceURL:        sourceURL,
		}
		ed.remove(reg)
	}

	for _, listener := range ed.heightListeners {
		listener.NotifyHeight(fblock.Number)
	}
}
