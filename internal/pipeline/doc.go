// Package pipeline runs the rotor cipher over a text in parallel.
//
// A run partitions the text into chunks, processes every chunk with its own freshly
// constructed cipher, and reassembles the outputs by chunk index. Progress messages go
// through a log channel drained by a single consumer. The final text goes through a save
// channel drained by a single writer, which acknowledges every request.
//
// Each chunk starts its cipher at rotor positions (0,0,0). The chunk count therefore acts as
// part of the key: text encrypted with n chunks only decrypts with n chunks.
package pipeline
