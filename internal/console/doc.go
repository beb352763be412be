// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package console implements the operator side of the recording gateway: it turns
// free text into lookups, normalizes the gateway responses into one result per
// submitted identifier, tracks which result is streaming, and drives downloads.
//
// Data flow:
//
//	text -> ParseIdentifiers -> Dispatcher -> Lookup (gateway) -> Normalize* -> Controller
//
// Session ties the pieces together and is the only type front-ends talk to.
package console
