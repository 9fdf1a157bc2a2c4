// Package publishers provides domainevents.Publisher implementations for common transports.
//
// Every publisher wraps each event of a batch in an Envelope: a uuid v7 message id, the event name,
// the dispatch time, the correlation data set during capture and the JSON payload of the event.
// The envelope is the wire format on every transport.
package publishers
