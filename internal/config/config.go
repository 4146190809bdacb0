// Package config loads solver configuration from a TOML file and overlays
// it with JSON-problem-embedded parameters and then CLI flags, in that
// precedence order (spec §6).
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/elektrokombinacija/stas/internal/core"
)

// File is the on-disk TOML shape for `stas --config`.
type File struct {
	Scheduler SchedulerSection `toml:"scheduler_parameters"`
	Itags     ItagsSection     `toml:"itags_parameters"`
	Oracle    OracleSection    `toml:"oracle"`
	LogLevel  string           `toml:"log_level"`
}

// SchedulerSection mirrors core.SchedulerParameters.
type SchedulerSection struct {
	Timeout                     float64 `toml:"timeout"`
	Threads                     int     `toml:"threads"`
	MIPGap                      float64 `toml:"mip_gap"`
	HierarchicalObjective       bool    `toml:"hierarchical_objective"`
	ComputeTransitionHeuristics bool    `toml:"compute_transition_heuristics"`
}

// ItagsSection mirrors core.ItagsParameters.
type ItagsSection struct {
	Timeout      float64 `toml:"timeout"`
	RetainClosed bool    `toml:"retain_closed"`
	RetainPruned bool    `toml:"retain_pruned"`
}

// OracleSection configures the motion-plan duration cache, not carried by
// core.ProblemInputs since it is an implementation resource, not a problem
// input (spec §5 "Shared-resource policy").
type OracleSection struct {
	CacheSize int `toml:"cache_size"`
}

// Load parses a TOML config file. A missing/empty path returns a zero File,
// letting callers treat config-less runs as "everything at JSON/flag
// defaults" rather than special-casing absence.
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return File{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return f, nil
}

// OverlayScheduler applies f's scheduler section onto base, field by field,
// only where f sets a non-zero value — JSON-problem-embedded parameters win
// over the TOML file wherever the problem document itself sets one.
func (f File) OverlayScheduler(base core.SchedulerParameters) core.SchedulerParameters {
	out := base
	if out.Timeout == 0 {
		out.Timeout = f.Scheduler.Timeout
	}
	if out.Threads == 0 {
		out.Threads = f.Scheduler.Threads
	}
	if out.MIPGap == 0 {
		out.MIPGap = f.Scheduler.MIPGap
	}
	if !out.HierarchicalObjective {
		out.HierarchicalObjective = f.Scheduler.HierarchicalObjective
	}
	if !out.ComputeTransitionHeuristics {
		out.ComputeTransitionHeuristics = f.Scheduler.ComputeTransitionHeuristics
	}
	return out
}

// OverlayItags applies f's itags section the same way.
func (f File) OverlayItags(base core.ItagsParameters) core.ItagsParameters {
	out := base
	if out.Timeout == 0 {
		out.Timeout = f.Itags.Timeout
	}
	if !out.RetainClosed {
		out.RetainClosed = f.Itags.RetainClosed
	}
	if !out.RetainPruned {
		out.RetainPruned = f.Itags.RetainPruned
	}
	return out
}

// CacheSize returns the configured oracle LRU size, or 0 for the oracle's
// own default.
func (f File) CacheSize() int { return f.Oracle.CacheSize }
