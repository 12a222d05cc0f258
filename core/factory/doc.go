// Package factory builds pluggable components, such as metrics sinks, from
// the `type` and `conf` pair found in configuration lists:
//
//	metrics:
//	  sinks:
//	    - type: influx
//	      conf: {url: "http://localhost:8086", bucket: runs}
//
// Each implementation registers a Factory under its type name and decodes
// its own conf map with Decode.
package factory
