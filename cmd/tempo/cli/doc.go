// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the tempo CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a parameter struct whose tagged
// fields become flags ([Command.Params], bound by [BindFlags]), and a Run
// function. Commands are assembled into a tree in cmd/tempo/main.go and
// dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// Each Run receives a context cancelled on SIGINT/SIGTERM and a
// [log/slog] logger from [NewCommandLogger]. A command whose params
// include a --verbose flag gets a debug-level logger when it is set.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3).
//
// Output helpers: [JSONOutput] adds --json to a params struct, and
// [Output] and [Table] render aligned, colored text that degrades to
// plain text when stdout is not a terminal.
package cli
