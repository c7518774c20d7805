// Package protocol defines the messages exchanged with the sebuild daemon.
//
// Every message is an [Envelope] encoded as one line of JSON. A client sends
// a single request envelope; the daemon answers with zero or more
// [CmdProgress] envelopes followed by exactly one [CmdOK] or [CmdError]
// envelope, then closes the connection.
//
//	data, err := protocol.Encode(protocol.CmdBuild, &protocol.BuildRequest{
//	    Project: "/home/me/game/game.sebx",
//	    Output:  "/home/me/game/dist",
//	})
package protocol
