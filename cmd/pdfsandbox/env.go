package main

import (
	"io"
	"net"
	"os"

	"github.com/alnah/go-pdfsandbox"
	"github.com/alnah/go-pdfsandbox/internal/server"
)

// Renderer is the shared renderer as the CLI sees it: the server's
// interface plus Close.
type Renderer interface {
	server.Renderer
	Close() error
}

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer

	Getenv  func(string) string
	Environ func() []string

	Listen      func(network, address string) (net.Listener, error)
	NewRenderer func(opts ...pdfsandbox.Option) (Renderer, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		Environ:     os.Environ,
		Listen:      net.Listen,
		NewRenderer: newRenderer,
	}
}

func newRenderer(opts ...pdfsandbox.Option) (Renderer, error) {
	r, err := pdfsandbox.NewRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}
