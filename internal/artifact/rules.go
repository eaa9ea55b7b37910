// Package artifact owns the filename pattern tables that route builder
// outputs into the release directory tree. The tables are data, not
// control flow: adding a platform or stage means adding rows, and the
// rows are testable against representative filenames without running
// any external tool.
package artifact

import (
	"fmt"
	"strings"

	"github.com/bianoble/relforge/internal/request"
)

// Stage is a pipeline stage that moves builder outputs.
type Stage string

const (
	StageBuild Stage = "build"
	StageSign  Stage = "sign"
)

// DestKind names a move destination resolved to a real directory at
// application time.
type DestKind string

const (
	// DestRelease is the per-version release directory.
	DestRelease DestKind = "release"
	// DestInputs is the builder's inputs directory, where unsigned
	// archives wait for the sign stage.
	DestInputs DestKind = "inputs"
)

// Rule matches builder output files by glob (relative to the builder's
// output directory) and routes them to a destination. Rename, when set,
// gives the moved file a new basename.
//
// Globs and renames may reference {project} and {version}.
type Rule struct {
	Glob   string
	Dest   DestKind
	Rename string
}

type moveKey struct {
	Stage  Stage
	Target request.Target
}

// moveRules is the single source of truth for (stage, target) file
// movement. Rule order matters: the windows and macos build rows route
// the unsigned archive to inputs/ before the broader patterns sweep the
// remaining files into the release directory.
var moveRules = map[moveKey][]Rule{
	{StageBuild, request.TargetLinux}: {
		{Glob: "{project}-*.tar.gz", Dest: DestRelease},
		{Glob: "src/{project}-*.tar.gz", Dest: DestRelease},
	},
	{StageBuild, request.TargetWindows}: {
		{Glob: "{project}-*-win-unsigned.tar.gz", Dest: DestInputs},
		{Glob: "{project}-*.zip", Dest: DestRelease},
		{Glob: "{project}-*.exe", Dest: DestRelease},
		{Glob: "src/{project}-*.tar.gz", Dest: DestRelease},
	},
	{StageBuild, request.TargetMacOS}: {
		{Glob: "{project}-*-osx-unsigned.tar.gz", Dest: DestInputs},
		{Glob: "{project}-*.tar.gz", Dest: DestRelease},
		{Glob: "{project}-*.dmg", Dest: DestRelease},
		{Glob: "src/{project}-*.tar.gz", Dest: DestRelease},
	},
	{StageSign, request.TargetWindows}: {
		{Glob: "{project}-*win64-setup.exe", Dest: DestRelease},
	},
	{StageSign, request.TargetMacOS}: {
		{Glob: "{project}-osx-signed.dmg", Dest: DestRelease, Rename: "{project}-{version}-osx.dmg"},
	},
}

// Move is a Rule with its placeholders expanded.
type Move struct {
	Glob   string
	Dest   DestKind
	Rename string
}

// Resolver expands the rule table for a concrete project.
type Resolver struct {
	Project string
}

// Moves returns the expanded move list for a (stage, target) pair. A pair
// the table does not cover is a programming error surfaced as an error so
// new stages cannot silently move nothing.
func (r *Resolver) Moves(stage Stage, target request.Target, version string) ([]Move, error) {
	rules, ok := moveRules[moveKey{stage, target}]
	if !ok {
		return nil, fmt.Errorf("no artifact rules for stage %s target %s", stage, target)
	}

	expand := func(s string) string {
		s = strings.ReplaceAll(s, "{project}", r.Project)
		return strings.ReplaceAll(s, "{version}", version)
	}

	moves := make([]Move, len(rules))
	for i, rule := range rules {
		moves[i] = Move{
			Glob:   expand(rule.Glob),
			Dest:   rule.Dest,
			Rename: expand(rule.Rename),
		}
	}
	return moves, nil
}

// LocalMove relocates files matching Glob into the Dest subdirectory of
// the directory it is applied to. Used by the package stage's two
// partitioning passes.
type LocalMove struct {
	Glob string
	Dest string
}

// CategoryMoves partitions a flat release directory by artifact kind.
// Files matching neither pattern are the release subset, collected
// separately by MoveRemainingFiles.
func CategoryMoves() []LocalMove {
	return []LocalMove{
		{Glob: "*-debug*", Dest: "debug"},
		{Glob: "*-unsigned*", Dest: "unsigned"},
	}
}

// PlatformMoves partitions the release subset by platform substring.
// The source tarball row must come first: it would otherwise never match
// once a platform pattern claimed it.
func PlatformMoves(project, version string) []LocalMove {
	return []LocalMove{
		{Glob: project + "-" + version + ".tar.gz", Dest: "src"},
		{Glob: "*-linux*", Dest: "linux"},
		{Glob: "*-osx*", Dest: "osx"},
		{Glob: "*-win*", Dest: "win"},
	}
}
