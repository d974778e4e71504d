package release

import "strings"

// HelperVariant is one helper-process role that needs its own macOS bundle.
type HelperVariant struct {
	// Suffix is the role name; empty for the default helper.
	Suffix string `yaml:"suffix"`
}

// DefaultHelperVariants returns the helper roles in the order CEF expects them.
func DefaultHelperVariants() []HelperVariant {
	return []HelperVariant{
		{Suffix: ""},
		{Suffix: "GPU"},
		{Suffix: "Plugin"},
		{Suffix: "Renderer"},
	}
}

// decoration is the " (Suffix)" part appended to names, empty for the default variant.
func (v HelperVariant) decoration() string {
	if v.Suffix == "" {
		return ""
	}

	return " (" + v.Suffix + ")"
}

// ExecutableName returns the helper executable name for this variant.
func (v HelperVariant) ExecutableName(helperBase string) string {
	return helperBase + v.decoration()
}

// BundleName returns the helper bundle directory name for this variant.
func (v HelperVariant) BundleName(helperBase string) string {
	return v.ExecutableName(helperBase) + ".app"
}

// PlistFile returns the variant-specific Info.plist source file name.
func (v HelperVariant) PlistFile() string {
	if v.Suffix == "" {
		return "info-subprocess.plist"
	}

	return "info-subprocess-" + strings.ToLower(v.Suffix) + ".plist"
}
