/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package test holds helpers for the in-process grpc servers that stand in
// for peers and orderers in tests.
package test

import (
	"fmt"
	"net"
	"os"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Logf writes a line to stdout. For goroutines that outlive a test's t.
func Logf(template string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, template+"\n", args...)
}

// Listen opens a TCP listener on address (use "127.0.0.1:0" for a random
// port) and returns it with its resolved address. It panics on failure.
func Listen(address string) (net.Listener, string) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		panic(fmt.Sprintf("Error starting listener on %s: %s", address, err))
	}
	return lis, lis.Addr().String()
}

// GRPCServer runs a grpc.Server on its own goroutine. The zero value is
// ready to Start.
type GRPCServer struct {
	srv *grpc.Server
	wg  sync.WaitGroup
}

// Start serves the services added by register on address and returns the
// bound address. creds may be nil for plaintext. Starting twice panics.
func (s *GRPCServer) Start(name, address string, creds credentials.TransportCredentials, register func(*grpc.Server)) string {
	if s.srv != nil {
		panic(name + " already started")
	}

	var opts []grpc.ServerOption
	if creds != nil {
		opts = append(opts, grpc.Creds(creds))
	}
	s.srv = grpc.NewServer(opts...)
	register(s.srv)

	lis, addr := Listen(address)
	Logf("Starting %s [%s]", name, addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(lis); err != nil {
			Logf("%s stopped serving [%s]", name, err)
		}
	}()
	return addr
}

// Stop terminates open streams and waits for the serving goroutine.
func (s *GRPCServer) Stop(name string) {
	if s.srv == nil {
		panic(name + " not started")
	}
	s.srv.Stop()
	s.wg.Wait()
	s.srv = nil
}
