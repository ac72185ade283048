/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package deliverclient

import (
	"time"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/options"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/core"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
	"github.com/fabric-stub/fabric-stub-go/pkg/core/config/comm"
	"github.com/fabric-stub/fabric-stub-go/pkg/fab/events/dispatcher"
)

type params struct {
	seekType             SeekType
	fromBlock            uint64
	respTimeout          time.Duration
	dialTimeout          time.Duration
	initialBackoff       time.Duration
	maxBackoff           time.Duration
	maxReconnectAttempts uint
	commManager          comm.CommManager
	hashOpts             core.HashOpts
}

func defaultParams() *params {
	return &params{
		seekType:       SeekNewest,
		respTimeout:    5 * time.Second,
		dialTimeout:    10 * time.Second,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     30 * time.Second,
		commManager:    &comm.DefaultCommManager{},
	}
}

// WithSeekType specifies the point from which block events are to be received.
func WithSeekType(value SeekType) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(seekTypeSetter); ok {
			setter.SetSeekType(value)
		}
	}
}

// WithBlockNum specifies the block number from which events are to be received.
// Note that this option is only valid if SeekType is set to SeekFrom.
func WithBlockNum(value uint64) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(fromBlockSetter); ok {
			setter.SetFromBlock(value)
		}
	}
}

// WithResponseTimeout sets the time to wait for the dispatcher to respond,
// and for the stream listener to exit on Close
func WithResponseTimeout(value time.Duration) options.Opt {
	return dispatcher.WithResponseTimeout(value)
}

// WithDialTimeout sets the connection timeout
func WithDialTimeout(value time.Duration) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(dialTimeoutSetter); ok {
			setter.SetDialTimeout(value)
		}
	}
}

// WithReconnectBackoff sets the initial and maximum wait between reconnect
// attempts. The wait doubles after each failed attempt.
func WithReconnectBackoff(initial, max time.Duration) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(backoffSetter); ok {
			setter.SetReconnectBackoff(initial, max)
		}
	}
}

// WithMaxReconnectAttempts limits consecutive reconnect attempts. Zero
// means reconnect forever.
func WithMaxReconnectAttempts(value uint) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(maxReconnectAttemptsSetter); ok {
			setter.SetMaxReconnectAttempts(value)
		}
	}
}

// WithCommManager sets the manager used to open and release connections
func WithCommManager(value comm.CommManager) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(commManagerSetter); ok {
			setter.SetCommManager(value)
		}
	}
}

// WithHashOpts sets the hash used for the seek request transaction ID
func WithHashOpts(value core.HashOpts) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(hashOptsSetter); ok {
			setter.SetHashOpts(value)
		}
	}
}

// WithBlockHeightListener adds a listener that is told the number of every
// block received. It is applied to the client's dispatcher.
func WithBlockHeightListener(value fab.BlockHeightListener) options.Opt {
	return dispatcher.WithBlockHeightListener(value)
}

type seekTypeSetter interface {
	SetSeekType(value SeekType)
}

type fromBlockSetter interface {
	SetFromBlock(value uint64)
}

type dialTimeoutSetter interface {
	SetDialTimeout(value time.Duration)
}

type backoffSetter interface {
	SetReconnectBackoff(initial, max time.Duration)
}

type maxReconnectAttemptsSetter interface {
	SetMaxReconnectAttempts(value uint)
}

type commManagerSetter interface {
	SetCommManager(value comm.CommManager)
}

type hashOptsSetter interface {
	SetHashOpts(value core.HashOpts)
}

func (p *params) SetSeekType(value SeekType) {
	logger.Debugf("SeekType: %s", value)
	if value != "" {
		p.seekType = value
	}
}

func (p *params) SetFromBlock(value uint64) {
	logger.Debugf("FromBlock: %d", value)
	p.fromBlock = value
}

func (p *params) SetResponseTimeout(value time.Duration) {
	logger.Debugf("ResponseTimeout: %s", value)
	if value > 0 {
		p.respTimeout = value
	}
}

func (p *params) SetDialTimeout(value time.Duration) {
	logger.Debugf("DialTimeout: %s", value)
	p.dialTimeout = value
}

func (p *params) SetReconnectBackoff(initial, max time.Duration) {
	logger.Debugf("ReconnectBackoff: %s - %s", initial, max)
	p.initialBackoff = initial
	p.maxBackoff = max
}

func (p *params) SetMaxReconnectAttempts(value uint) {
	logger.Debugf("MaxReconnectAttempts: %d", value)
	p.maxReconnectAttempts = value
}

func (p *params) SetCommManager(value comm.CommManager) {
	p.commManager = value
}

func (p *params) SetHashOpts(value core.HashOpts) {
	p.hashOpts = value
}
