// Package configs provides embedded configuration templates for fireworm.
//
// Templates are embedded at build time so `fireworm config init` works
// from any distribution. The hierarchy they feed is described on
// internal/config Load:
//  1. Hardcoded defaults
//  2. User config (~/.config/fireworm/config.yaml)
//  3. Project config (.fireworm.yaml)
//  4. Environment variables (FIREWORM_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by: `fireworm config init --user`.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Created by: `fireworm config init` at .fireworm.yaml in the project root.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
