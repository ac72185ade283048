/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resource maintains the set of resource descriptors that map a
// logical resource name to the channel, chaincode and endorsing peers
// serving it.
package resource

import (
	"sort"
	"sync"

	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/multi"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/errors/status"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/logging"
	"github.com/fabric-stub/fabric-stub-go/pkg/common/providers/fab"
)

var logger = logging.NewLogger("fabstub/client")

// Registry holds the current resource descriptors. The descriptor set is
// always replaced as a whole; a descriptor returned by the registry is
// never modified afterwards.
type Registry struct {
	mutex     sync.RWMutex
	resources map[string]*fab.ResourceDescriptor
}

// NewRegistry returns a registry holding the given descriptors
func NewRegistry(descriptors ...fab.ResourceDescriptor) (*Registry, error) {
	r := &Registry{resources: make(map[string]*fab.ResourceDescriptor)}
	if err := r.Replace(descriptors); err != nil {
		return nil, err
	}
	return r, nil
}

// Resource returns the descriptor with the given name
func (r *Registry) Resource(name string) (*fab.ResourceDescriptor, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	d, ok := r.resources[name]
	return d, ok
}

// Resources returns all descriptors ordered by name
func (r *Registry) Resources() []*fab.ResourceDescriptor {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	descriptors := make([]*fab.ResourceDescriptor, 0, len(r.resources))
	for _, d := range r.resources {
		descriptors = append(descriptors, d)
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

// Replace validates the descriptors and swaps them in for the current set.
// The current set is left untouched if any descriptor is invalid.
func (r *Registry) Replace(descriptors []fab.ResourceDescriptor) error {
	resources := make(map[string]*fab.ResourceDescriptor, len(descriptors))

	var errs multi.Errors
	for i := range descriptors {
		d := descriptors[i]
		if err := validate(&d); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, exists := resources[d.Name]; exists {
			errs = append(errs, status.Newf(status.ClientStatus, status.PreconditionFailed, "duplicate resource name [%s]", d.Name))
			continue
		}
		d.Endorsers = append([]string(nil), d.Endorsers...)
		resources[d.Name] = &d
	}
	if len(errs) > 0 {
		return errs.ToError()
	}

	r.mutex.Lock()
	r.resources = resources
	r.mutex.Unlock()

	logger.Debugf("Resource registry now holds %d descriptors", len(resources))
	return nil
}

func validate(d *fab.ResourceDescriptor) error {
	switch {
	case d.Name == "":
		return status.Newf(status.ClientStatus, status.PreconditionFailed, "resource name is required")
	case d.ChannelID == "":
		return status.Newf(status.ClientStatus, status.PreconditionFailed, "resource [%s] has no channel", d.Name)
	case d.ChaincodeID == "":
		return status.Newf(status.ClientStatus, status.PreconditionFailed, "resource [%s] has no chaincode", d.Name)
	case len(d.Endorsers) == 0:
		return status.Newf(status.ClientStatus, status.PreconditionFailed, "resource [%s] has no endorsers", d.Name)
	}
	return nil
}
