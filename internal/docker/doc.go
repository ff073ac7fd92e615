// Package docker runs PyInstaller inside a container for the docker build
// backend.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - One-shot packaging containers that bind-mount the project directory
//     and stream the tool's output back to the caller
//   - Labels that mark packaging containers so leftovers of an
//     interrupted build can be found and removed
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
