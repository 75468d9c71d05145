// Package session loads recorded pump sessions and replays them through
// the reconciliation engine.
//
// A session is a YAML document describing one device upload: the device
// metadata and the ordered list of decoded events. Loading is strict:
// unknown fields are rejected by the YAML decoder, and the document is
// unified with an embedded CUE schema before any record is built.
//
// Example:
//
//	name: basal_following
//	description: a scheduled basal resolved by the next one
//	device_id: tandem12345
//	events:
//	  - kind: basal
//	    time: "2014-09-25T02:00:00Z"
//	    delivery_type: scheduled
//	    rate: 0.75
//	  - kind: basal
//	    time: "2014-09-25T03:00:00Z"
//	    delivery_type: scheduled
//	    rate: 0.85
//
// Durations in a session are milliseconds, as on the wire.
package session
