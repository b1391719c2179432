// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for tempo.
//
// Configuration is loaded from a single file specified by either the
// TEMPO_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no fallback search: a
// command run without either uses [Default].
//
// Files are YAML. A file ending in .json or .jsonc is accepted too;
// comments and trailing commas are stripped before it is decoded. A
// file only needs the fields it changes, since it is merged over
// [Default].
//
// Variable expansion is performed on profile.path after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// Key exports:
//
//   - [Config] -- calibration, ladder, and profile sections
//   - [Default] -- the built-in configuration
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.EngineOptions] -- options for [precise.New]
package config
