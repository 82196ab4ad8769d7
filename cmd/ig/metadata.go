// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/suddenlysixam/rpi-image-gen/internal/envfile"
	"github.com/suddenlysixam/rpi-image-gen/internal/issue"
	"github.com/suddenlysixam/rpi-image-gen/internal/metadata"
	"github.com/suddenlysixam/rpi-image-gen/internal/resolver"
	"github.com/suddenlysixam/rpi-image-gen/internal/rules"
)

var (
	mdParse          bool
	mdValidate       bool
	mdDescribe       bool
	mdLint           bool
	mdGen            bool
	mdHelpValidation bool
	mdWriteOut       string

	metadataCmd = &cobra.Command{
		Use:   "metadata [flags] <file>",
		Short: "Work with the metadata block of a single layer file",
		Long: `Parse, validate, describe or lint the embedded X-Env metadata
block of one layer file, without dependency resolution.`,
		RunE: runMetadata,
	}
)

func init() {
	f := metadataCmd.Flags()
	f.BoolVar(&mdParse, "parse", false, "parse the file and resolve its variables against the environment")
	f.BoolVar(&mdValidate, "validate", false, "parse and validate without printing the resolution")
	f.BoolVar(&mdDescribe, "describe", false, "describe the layer, its variables and build payload")
	f.BoolVar(&mdLint, "lint", false, "check the metadata block for schema errors")
	f.BoolVar(&mdGen, "gen", false, "print a boilerplate metadata block")
	f.BoolVar(&mdHelpValidation, "help-validation", false, "show the validation rule and field reference")
	f.StringVar(&mdWriteOut, "write-out", "", "write the resolved change-set to this file (with --parse)")
}

func runMetadata(cmd *cobra.Command, args []string) error {
	switch {
	case mdGen:
		fmt.Print(metadata.Boilerplate)
		return nil
	case mdHelpValidation:
		out, err := glamour.Render(rules.HelpMarkdown+"\n\n## Supported fields\n\n"+fieldReference(), "auto")
		if err != nil {
			return fail(cmd, err)
		}
		fmt.Print(out)
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("expected exactly one layer file argument")
	}
	path := args[0]

	f, err := metadata.ParseFile(path)
	if err != nil {
		return fail(cmd, issue.WrapWithOperation(err, "parse layer metadata"))
	}

	switch {
	case mdLint:
		fmt.Println(SuccessStyle.Render("OK: ") + path)
		return nil
	case mdDescribe:
		describeFile(f)
		return nil
	}

	// Default mode is --parse.
	r := resolver.New(resolver.Snapshot())
	layerName := path
	if f.Layer != nil {
		layerName = f.Layer.Name
	}
	r.AddFile(layerName, f)
	res, err := r.Resolve()
	if err != nil {
		return fail(cmd, err)
	}
	if mdValidate {
		fmt.Println(SuccessStyle.Render("OK: ") + path)
		return nil
	}
	out, err := envfile.RenderAnnotated(res.Entries)
	if err != nil {
		return fail(cmd, err)
	}
	fmt.Print(out)
	if mdWriteOut != "" {
		if err := envfile.WriteFile(mdWriteOut, res.Changes()); err != nil {
			return fail(cmd, err)
		}
	}
	return nil
}

func fieldReference() string {
	out := ""
	for _, f := range metadata.SupportedFields() {
		out += "- `" + f + "`\n"
	}
	return out
}

func describeFile(f *metadata.File) {
	if f.Layer != nil {
		fmt.Println(TitleStyle.Render(f.Layer.Name))
		if f.Layer.Description != "" {
			fmt.Println("  " + SubtitleStyle.Render(f.Layer.Description))
		}
		if f.Layer.Version != "" {
			fmt.Println("  Version:  " + f.Layer.Version)
		}
		if f.Layer.Category != "" {
			fmt.Println("  Category: " + f.Layer.Category)
		}
		if len(f.Layer.Requires) > 0 {
			fmt.Print("  Requires:")
			for _, d := range f.Layer.Requires {
				fmt.Print(" " + NameStyle.Render(d.String()))
			}
			fmt.Println()
		}
		if len(f.Layer.Provides) > 0 {
			fmt.Print("  Provides:")
			for _, c := range f.Layer.Provides {
				fmt.Print(" " + NameStyle.Render(c))
			}
			fmt.Println()
		}
		if len(f.Layer.RequiresProvider) > 0 {
			fmt.Print("  Needs provider:")
			for _, c := range f.Layer.RequiresProvider {
				fmt.Print(" " + NameStyle.Render(c))
			}
			fmt.Println()
		}
		if len(f.Layer.Conflicts) > 0 {
			fmt.Print("  Conflicts:")
			for _, d := range f.Layer.Conflicts {
				fmt.Print(" " + NameStyle.Render(d.String()))
			}
			fmt.Println()
		}
	}

	if len(f.Variables) > 0 {
		fmt.Println(TitleStyle.Render("Variables") + SubtitleStyle.Render(" (prefix "+f.Prefix+")"))
		for _, v := range f.Variables {
			line := "  " + NameStyle.Render(v.FullName) + " = " + v.Default + "  [" + v.Policy.String() + "]"
			if v.Required {
				line += " (required)"
			}
			fmt.Println(line)
			if v.Description != "" {
				fmt.Println("      " + SubtitleStyle.Render(v.Description))
			}
			if v.Rule != nil {
				fmt.Println("      valid: " + v.Rule.Describe())
			}
		}
	}

	printExternal := func(title string, evs []metadata.ExternalVar) {
		if len(evs) == 0 {
			return
		}
		fmt.Println(TitleStyle.Render(title))
		for _, ev := range evs {
			line := "  " + NameStyle.Render(ev.Name)
			if ev.Rule != nil {
				line += "  valid: " + ev.Rule.Describe()
			}
			fmt.Println(line)
		}
	}
	printExternal("Requires from environment", f.Requires)
	printExternal("Optional from environment", f.Optional)

	if payload := describePayload(f.Path); payload != "" {
		fmt.Print(payload)
	}
}

func describePayload(path string) string {
	f, err := readPayload(path)
	if err != nil || f == nil {
		return ""
	}
	out := TitleStyle.Render("Build payload") + "\n"
	out += "  Sections: " + fmt.Sprint(f.Keys) + "\n"
	if len(f.Architectures) > 0 {
		out += "  Architectures: " + fmt.Sprint(f.Architectures) + "\n"
	}
	if len(f.Packages) > 0 {
		out += "  Packages: " + fmt.Sprint(f.Packages) + "\n"
	}
	return out
}

func readPayload(path string) (*metadata.Payload, error) {
	content, err := readFileString(path)
	if err != nil {
		return nil, err
	}
	return metadata.ParsePayload(content)
}
