package project

// ManifestFile is the project manifest read by the compiler.
const ManifestFile = "Nargo.toml"

// DefaultManifest is written when a project has no manifest.
const DefaultManifest = `[package]
name = "main"
type = "bin"
authors = [""]
compiler_version = ">=0.18.0"

[dependencies]
`
