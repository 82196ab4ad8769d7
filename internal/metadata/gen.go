// SPDX-License-Identifier: MPL-2.0

package metadata

// Boilerplate is a starter metadata block for new layer files.
const Boilerplate = `# METABEGIN
# X-Env-Layer-Name: mylayer
# X-Env-Layer-Desc: Describe what this layer provides
# X-Env-Layer-Version: 1.0.0
# X-Env-Layer-Category: misc
#
# X-Env-VarPrefix: mylayer
#
# X-Env-Var-example: default-value
# X-Env-Var-example-Desc: Describe this variable
# X-Env-Var-example-Valid: string
# X-Env-Var-example-Set: immediate
# X-Env-Var-example-Required: false
# METAEND
`
