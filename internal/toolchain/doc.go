// Package toolchain maintains the local cache of versioned toolchain trees.
//
// A toolchain tree is the skeleton copied into every build workspace,
// including the container build recipe. Trees are published upstream as
// archives keyed by a two-component [Version] ("0.29"). The [Manager] lists
// what a [Source] offers, downloads an archive to a scratch file, extracts
// it, and normalizes the extracted top-level folder (typically
// "ScratchEverywhere-0.29") to the canonical version name inside the
// [Store].
//
// The store is read by the staging engine and written only by
// [Manager.Install] and [Manager.Remove]. Nothing in this package runs as a
// side effect of a build: installing is always an explicit step.
//
// Example usage:
//
//	store := toolchain.NewStore(paths.Versions())
//	mgr := toolchain.NewManager(store, toolchain.NewGitHubSource("ScratchEverywhere", "ScratchEverywhere"))
//
//	versions, err := mgr.ListRemoteVersions(ctx)
//	if err != nil {
//	    return err
//	}
//
//	if err := mgr.Install(ctx, versions[0], toolchain.InstallOptions{}); err != nil {
//	    return err
//	}
package toolchain
