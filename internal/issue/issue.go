// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	LayerNotFoundId Id = iota + 1
	MetadataParseErrorId
	UnsupportedFieldId
	ValidationFailedId
	DependencyCycleId
	LayerCollisionId
	ProviderAmbiguityId
	EnvVarMissingId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links shown under "See also"
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	layerNotFoundIssue = &Issue{
		id: LayerNotFoundId,
		mdMsg: `
# Layer not found!

The named layer was not discovered under any of the configured search paths.

## Things you can try:
- List all discovered layers:
~~~
$ ig layer --path ./layer --list
~~~

- Check for typos in the layer name
- Verify the file declares the name you expect:
~~~
# X-Env-Layer-Name: mylayer
~~~

- Add the directory holding the layer file to the search path:
~~~
$ ig layer --path ./layer:./device --list
~~~`,
	}

	metadataParseErrorIssue = &Issue{
		id: MetadataParseErrorId,
		mdMsg: `
# Failed to parse layer metadata!

The embedded metadata block contains a syntax error.

## Common issues:
- Missing or unbalanced METABEGIN/METAEND markers
- A line inside the block that is not a comment
- A line that is neither "Key: value" nor an indented continuation
- The same field given twice

## Things you can try:
- Check the reported file and line number
- Generate a known-good starting block:
~~~
$ ig metadata --gen
~~~

## Example of a valid block:
~~~
# METABEGIN
# X-Env-Layer-Name: base
# X-Env-Layer-Desc: Minimal bootstrapped system
# X-Env-VarPrefix: base
# X-Env-Var-hostname: raspberrypi
# METAEND
~~~`,
	}

	unsupportedFieldIssue = &Issue{
		id: UnsupportedFieldId,
		mdMsg: `
# Unsupported metadata field!

The metadata block contains an X-Env field outside the supported schema.
Field names are matched case-insensitively, but the set of fields is closed.

## Things you can try:
- Check the field name for typos
- Review the field reference:
~~~
$ ig metadata --help-validation
~~~`,
	}

	validationFailedIssue = &Issue{
		id: ValidationFailedId,
		mdMsg: `
# Variable validation failed!

A resolved or externally supplied value does not satisfy the validation
rule declared for its variable.

## Things you can try:
- Check the reported variable and rule
- Review the rule reference:
~~~
$ ig metadata --help-validation
~~~

- Inspect what each layer declares:
~~~
$ ig metadata --describe <file>
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The layer dependency graph contains a cycle, so no build order exists.

## Example of a cycle:
~~~
# a.yaml
# X-Env-Layer-Name: a
# X-Env-Layer-Requires: b

# b.yaml
# X-Env-Layer-Name: b
# X-Env-Layer-Requires: a    <- cycle: a -> b -> a
~~~

## Things you can try:
- Follow the reported cycle path and break one edge
- Move shared functionality into a third layer both can require`,
	}

	layerCollisionIssue = &Issue{
		id: LayerCollisionId,
		mdMsg: `
# Layer name collision!

Two discovered files declare the same X-Env-Layer-Name. Layer names must
be unique across all search paths.

## Things you can try:
- Rename one of the layers
- Narrow the search path so only one of the files is discovered`,
	}

	providerAmbiguityIssue = &Issue{
		id: ProviderAmbiguityId,
		mdMsg: `
# Capability provider problem!

A required capability either has no provider or more than one.

## Things you can try:
- List providers across the discovered layers:
~~~
$ ig layer --path ./layer --describe <names...>
~~~

- Add a layer that declares the capability:
~~~
# X-Env-Layer-Provides: network
~~~

- Or remove the surplus provider from the search path`,
	}

	envVarMissingIssue = &Issue{
		id: EnvVarMissingId,
		mdMsg: `
# Required environment variable missing!

A layer requires a variable to be present in the environment, either via
X-Env-VarRequires or a variable declared with Set: skip.

## Things you can try:
- Export the variable before running:
~~~
$ export IGconf_example_var=value
$ ig layer --path ./layer --apply-env <name>
~~~

- Check which variables a layer expects:
~~~
$ ig metadata --describe <file>
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the ig configuration file.

## Things you can try:
- Create a default configuration:
~~~
$ ig config init
~~~

- Check the TOML syntax of the existing file
- Inspect the effective configuration:
~~~
$ ig config show
~~~`,
	}

	issues = map[Id]*Issue{
		layerNotFoundIssue.Id():      layerNotFoundIssue,
		metadataParseErrorIssue.Id(): metadataParseErrorIssue,
		unsupportedFieldIssue.Id():   unsupportedFieldIssue,
		validationFailedIssue.Id():   validationFailedIssue,
		dependencyCycleIssue.Id():    dependencyCycleIssue,
		layerCollisionIssue.Id():     layerCollisionIssue,
		providerAmbiguityIssue.Id():  providerAmbiguityIssue,
		envVarMissingIssue.Id():      envVarMissingIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return slices.Collect(maps.Values(issues))
}

func Get(id Id) *Issue {
	return issues[id]
}
