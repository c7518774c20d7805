// Provides platform-appropriate paths for sebuild.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The program name "sebuild" is used as the
// subdirectory under each base path. The toolchain version store lives under
// the data home because it is expensive to rebuild; workspaces and the build
// lock live under the cache home.
package paths
