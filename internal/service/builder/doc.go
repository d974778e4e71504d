// Package builder invokes the external compiler's publish command once per
// project and platform, directing the output into a package payload directory.
package builder
