/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"time"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/options"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

type params struct {
	eventConsumerBufferSize uint
	respTimeout             time.Duration
	heightListeners         []fab.BlockHeightListener
}

func defaultParams() *params {
	return &params{
		eventConsumerBufferSize: 100,
		respTimeout:             5 * time.Second,
	}
}

// WithEventConsumerBufferSize sets the size of the dispatcher's event queue
func WithEventConsumerBufferSize(value uint) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(bufferSizeSetter); ok {
			setter.SetEventConsumerBufferSize(value)
		}
	}
}

// WithResponseTimeout sets the time to wait for a registration response
func WithResponseTimeout(value time.Duration) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(responseTimeoutSetter); ok {
			setter.SetResponseTimeout(value)
		}
	}
}

// WithBlockHeightListener adds a listener that is told the number of every
// filtered block received
func WithBlockHeightListener(value fab.BlockHeightListener) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(heightListenerSetter); ok {
			setter.AddBlockHeightListener(value)
		}
	}
}

type bufferSizeSetter interface {
	SetEventConsumerBufferSize(value uint)
}

type responseTimeoutSetter interface {
	SetResponseTimeout(value time.Duration)
}

type heightListenerSetter interface {
	AddBlockHeightListener(value fab.BlockHeightListener)
}

func (p *params) SetEventConsumerBufferSize(value uint) {
	if value > 0 {
		p.eventConsumerBufferSize = value
	}
}

func (p *params) SetResponseTimeout(value time.Duration) {
	if value > 0 {
		p.respTimeout = value
	}
}

func (p *params) AddBlockHeightListener(value fab.BlockHeightListener) {
	if value != nil {
		p.heightListeners = append(p.heightListeners, value)
	}
}
