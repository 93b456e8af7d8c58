// SPDX-License-Identifier: MPL-2.0

// Package header parses manifest header values into clauses.
//
// A header is a comma-separated list of clauses. Each clause starts with one or
// more semicolon-separated names followed by parameters:
//
//	Import-Package: com.example.api;version="[1.0,2.0)";resolution:=optional,
//	 com.example.spi
//
// Parameters written as key=value are attributes, key:=value are directives,
// and key:Type=value are typed attributes kept under their raw key. Values may
// be double-quoted to embed ',' and ';'.
//
// Names carrying trailing '~' duplicate markers are returned with the markers
// removed; because ParseHeader returns a slice, repeated names survive without
// any further bookkeeping by callers.
package header
