// Package project models the unit of build input.
//
// A [Project] names its optional icon and banner images, the visual
// programming bundle to embed, and the toolchain [toolchain.Version] it
// targets. Asset references come in two shapes, a single bundle file or a
// folder of assets; [AssetSource] records which one once, when the project
// is loaded, so nothing downstream has to probe the file system to decide.
//
// Projects are persisted as a small XML manifest (".sebx"). Relative paths
// in a manifest are resolved against the manifest's directory on load.
package project
