// SPDX-License-Identifier: MPL-2.0

package rules

// HelpMarkdown is the reference for rule specifications, rendered for
// the metadata --help-validation command.
const HelpMarkdown = `# Validation Schemes for X-Env-Var-*-Valid Fields

## Basic types

- ` + "`bool`" + ` - Must be: true/false, 1/0, yes/no, y/n (case insensitive)
- ` + "`string`" + ` - Must be a non-empty string (required)
- ` + "`string-or-unset`" + ` - Must be non-empty string or unset
- ` + "`string-or-empty`" + ` - Must be any string (may be empty) but not unset
- ` + "`email`" + ` - Must be an email address

## Advanced types

### Integers

- ` + "`int`" + ` - Must be a valid integer
- ` + "`int:MIN-MAX`" + ` - Integer within range (inclusive)

Examples: ` + "`int:1-100`" + `, ` + "`int:1024-65535`" + ` (ports), ` + "`int:0-255`" + ` (bytes)

### Regular expressions

- ` + "`regex:PATTERN`" + ` - Must fully match the regular expression

Examples: ` + "`regex:^[a-zA-Z0-9.-]+$`" + ` (hostname), ` + "`regex:^(http|https)://`" + ` (URL)

### Enumerations

- ` + "`value1,value2,value3`" + ` - Must be one of the listed values
- ` + "`keywords:word1,word2`" + ` - Must be one of the listed alphanumeric keywords

For a single allowed value, add a trailing comma (` + "`syft,`" + `) or use the
` + "`keywords:`" + ` prefix.

### Sizes

- ` + "`size`" + ` - Size with optional unit or percentage

Formats: ` + "`12345`" + ` (bytes), ` + "`20k`" + `/` + "`128M`" + `/` + "`1G`" + ` (multiples of 1024),
` + "`512s`" + ` (sectors of 512), ` + "`50%`" + ` (any positive integer percentage)

### Composition

- ` + "`all:rule|rule`" + ` - Every sub-rule must pass
- ` + "`any:rule|rule`" + ` - At least one sub-rule must pass

## Placeholders (substituted when a default is applied)

- ` + "`${FILENAME}`" + ` - layer metadata file name
- ` + "`${DIRECTORY}`" + ` - directory containing the file
- ` + "`${FILEPATH}`" + ` - absolute path to the file
- References to already-resolved ` + "`IGconf_*`" + ` variables by name

Escape with ` + "`\\${NAME}`" + ` to keep the literal text.

## Set policy (X-Env-Var-*-Set)

- ` + "`force`" + ` - always overwrite an existing environment value
- ` + "`immediate`" + ` - set if the variable is unset (default)
- ` + "`lazy`" + ` - applied after all layers are processed (last-wins)
- ` + "`skip`" + ` - never set; the variable must be supplied externally

Aliases: true/yes/1/y map to immediate; false/no/0/n map to skip.

## Variable requirements

- ` + "`X-Env-VarRequires: var1,var2`" + ` - required environment variables
- ` + "`X-Env-VarRequires-Valid: rule1 rule2`" + ` - rules, whitespace-separated,
  paired with the variables in order (rules themselves may contain commas)
- ` + "`X-Env-VarOptional: var1,var2`" + ` - optional variables (validated if present)
- ` + "`X-Env-VarOptional-Valid: rule1 rule2`" + ` - rules for the optional variables

Variables are checked as-is (no IGconf_ prefix or VarPrefix applied).
`
