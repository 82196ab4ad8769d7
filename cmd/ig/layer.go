// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/suddenlysixam/rpi-image-gen/internal/config"
	"github.com/suddenlysixam/rpi-image-gen/internal/deps"
	"github.com/suddenlysixam/rpi-image-gen/internal/envfile"
	"github.com/suddenlysixam/rpi-image-gen/internal/registry"
	"github.com/suddenlysixam/rpi-image-gen/internal/resolver"
)

var (
	lyPath       string
	lyPatterns   []string
	lyList       bool
	lyDescribe   bool
	lyValidate   bool
	lyCheck      bool
	lyBuildOrder bool
	lyApplyEnv   bool
	lyRdep       bool
	lyShowPaths  bool
	lyFullPaths  bool
	lyOutput     string
	lyWriteOut   string

	layerCmd = &cobra.Command{
		Use:   "layer [flags] [<names>...]",
		Short: "Discover layers and resolve their dependency environment",
		Long: `Discover layer files under the search paths, validate their
dependency graph, and resolve the combined environment in build order.`,
		RunE: runLayer,
	}
)

func init() {
	f := layerCmd.Flags()
	f.StringVar(&lyPath, "path", "", "colon-separated search paths (default from config)")
	f.StringSliceVar(&lyPatterns, "patterns", nil, "filename patterns to discover (default from config)")
	f.BoolVar(&lyList, "list", false, "list discovered layers grouped by category")
	f.BoolVar(&lyDescribe, "describe", false, "describe the named layers")
	f.BoolVar(&lyValidate, "validate", false, "resolve and validate the named layers")
	f.BoolVar(&lyCheck, "check", false, "check the dependency graph of the named layers")
	f.BoolVar(&lyBuildOrder, "build-order", false, "print the build order of the named layers")
	f.BoolVar(&lyApplyEnv, "apply-env", false, "resolve the environment across the build order")
	f.BoolVar(&lyRdep, "rdep", false, "list layers that directly depend on the named layer")
	f.BoolVar(&lyShowPaths, "show-paths", false, "print the file paths of the named layers")
	f.BoolVar(&lyFullPaths, "full-paths", false, "print absolute paths with --show-paths")
	f.StringVar(&lyOutput, "output", "", "write the resolved change-set to this file")
	f.StringVar(&lyWriteOut, "write-out", "", "alias of --output")
}

func searchRoots() []string {
	if lyPath != "" {
		return config.SplitPathList(lyPath)
	}
	return cfg.SearchPaths
}

func patterns() []string {
	if len(lyPatterns) > 0 {
		return lyPatterns
	}
	return cfg.Patterns
}

func runLayer(cmd *cobra.Command, args []string) error {
	reg, err := registry.Discover(searchRoots(), patterns())
	if err != nil {
		return fail(cmd, err)
	}
	for _, b := range reg.Broken() {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+b.Err.Error())
	}

	switch {
	case lyList:
		listLayers(reg)
		return nil
	case lyRdep:
		if len(args) != 1 {
			return fmt.Errorf("--rdep expects exactly one layer name")
		}
		rdeps, err := deps.NewBuilder(reg, deps.OSEnv()).ReverseDeps(args[0])
		if err != nil {
			return fail(cmd, err)
		}
		for _, name := range rdeps {
			fmt.Println(name)
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("expected at least one layer name")
	}

	switch {
	case lyShowPaths:
		return showPaths(cmd, reg, args)
	case lyDescribe:
		for _, name := range args {
			e, ok := reg.Get(name)
			if !ok {
				return fail(cmd, &deps.MissingLayerError{Name: name})
			}
			describeFile(e.File)
		}
		return nil
	}

	b := deps.NewBuilder(reg, deps.OSEnv())
	order, err := b.BuildOrder(args)
	if err != nil {
		return fail(cmd, err)
	}

	switch {
	case lyCheck:
		fmt.Println(SuccessStyle.Render("OK: ") + fmt.Sprintf("%d layers, no graph problems", len(order)))
		return nil
	case lyBuildOrder:
		for _, name := range order {
			fmt.Println(name)
		}
		return nil
	}

	// --validate and --apply-env both need a full resolution pass.
	r := resolver.New(resolver.Snapshot())
	for _, name := range order {
		e, _ := reg.Get(name)
		r.AddFile(name, e.File)
	}
	res, err := r.Resolve()
	if err != nil {
		return fail(cmd, err)
	}

	if lyValidate {
		fmt.Println(SuccessStyle.Render("OK: ") + fmt.Sprintf("%d layers validated", len(order)))
		return nil
	}

	// Default mode is --apply-env.
	out, err := envfile.RenderAnnotated(res.Entries)
	if err != nil {
		return fail(cmd, err)
	}
	fmt.Print(out)

	dest := lyOutput
	if dest == "" {
		dest = lyWriteOut
	}
	if dest != "" {
		if err := envfile.WriteFile(dest, res.Changes()); err != nil {
			return fail(cmd, err)
		}
	}
	return nil
}

func listLayers(reg *registry.Registry) {
	byCat := reg.ByCategory()
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		title := cat
		if title == "" {
			title = "(uncategorized)"
		}
		fmt.Println(TitleStyle.Render(title))
		for _, name := range byCat[cat] {
			e, _ := reg.Get(name)
			line := "  " + NameStyle.Render(name)
			if desc := e.File.Layer.Description; desc != "" {
				line += "  " + SubtitleStyle.Render(desc)
			}
			fmt.Println(line)
		}
	}
}

func showPaths(cmd *cobra.Command, reg *registry.Registry, names []string) error {
	cwd, _ := os.Getwd()
	for _, name := range names {
		e, ok := reg.Get(name)
		if !ok {
			return fail(cmd, &deps.MissingLayerError{Name: name})
		}
		path := e.Path
		if !lyFullPaths && cwd != "" {
			if rel, err := filepath.Rel(cwd, path); err == nil {
				path = rel
			}
		}
		fmt.Println(path)
	}
	return nil
}

// readFileString loads a file as a string.
func readFileString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
