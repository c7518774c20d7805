// Package stage assembles build workspaces.
//
// An [Engine] turns a [project.Project] into a self-contained build tree: it
// copies the toolchain template for the project's target version out of the
// version store, lays the project's icon, banner and bundle down at fixed
// locations described by a [Layout], and locates the build recipe inside the
// result.
//
// Preconditions (installed version, referenced bundle) are checked before
// anything is written, so a failed [Engine.Prepare] never leaves a
// half-populated tree that could be mistaken for a valid one. The engine only
// reads from the version store; it never triggers a download.
//
// Example:
//
//	eng := stage.NewEngine(toolchain.NewStore(paths.Versions()))
//	recipe, err := eng.Prepare(ctx, proj, workspace)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(recipe.Path, recipe.Fingerprint)
package stage
