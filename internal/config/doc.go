// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the gateway configuration.
//
// Precedence is ENV > YAML file > defaults. The file is decoded strictly:
// unknown keys are an error. Admin edits are written back with Manager.Save and
// picked up by Holder, which also reloads on file change.
package config
