// Package server implements the sebuild daemon and its client.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands from
// sebuild front-ends. Each connection carries a single request: the client
// sends one newline-delimited [protocol.Envelope], the server streams
// progress envelopes while it works and finishes with one ok or error
// envelope before closing the connection.
//
// Builds and toolchain installs are serialized across all connections, so
// several front-ends can share one daemon without tripping over the
// single-build lock. A client that disconnects cancels the staging, probe or
// download step it was waiting for; a container build that has started runs
// to completion.
//
// Example usage:
//
//	srv, err := server.New(server.Config{Builder: builder, Manager: manager})
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
