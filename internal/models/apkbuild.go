package models

// Apkbuild is the metadata declared by an APKBUILD build descriptor.
type Apkbuild struct {
	// Parsed from comments
	Maintainer   string   `json:"maintainer,omitempty" yaml:"maintainer,omitempty"`
	Contributors []string `json:"contributors" yaml:"contributors"`

	Name        string   `json:"pkgname" yaml:"pkgname"`
	Version     string   `json:"pkgver" yaml:"pkgver"`
	Release     int      `json:"pkgrel" yaml:"pkgrel"`
	Description string   `json:"pkgdesc" yaml:"pkgdesc"`
	URL         string   `json:"url" yaml:"url"`
	Arch        []string `json:"arch" yaml:"arch"`
	License     string   `json:"license" yaml:"license"`

	Depends          []Dependency `json:"depends" yaml:"depends"`
	MakeDepends      []Dependency `json:"makedepends" yaml:"makedepends"`
	MakeDependsBuild []Dependency `json:"makedepends_build" yaml:"makedepends_build"`
	MakeDependsHost  []Dependency `json:"makedepends_host" yaml:"makedepends_host"`
	CheckDepends     []Dependency `json:"checkdepends" yaml:"checkdepends"`
	InstallIf        []Dependency `json:"install_if" yaml:"install_if"`

	PkgUsers  []string `json:"pkgusers" yaml:"pkgusers"`
	PkgGroups []string `json:"pkggroups" yaml:"pkggroups"`

	Provides         []Dependency `json:"provides" yaml:"provides"`
	ProviderPriority *uint32      `json:"provider_priority,omitempty" yaml:"provider_priority,omitempty"`
	PCPrefix         string       `json:"pcprefix,omitempty" yaml:"pcprefix,omitempty"`
	SonamePrefix     string       `json:"sonameprefix,omitempty" yaml:"sonameprefix,omitempty"`
	Replaces         []Dependency `json:"replaces" yaml:"replaces"`
	ReplacesPriority *uint32      `json:"replaces_priority,omitempty" yaml:"replaces_priority,omitempty"`

	Install     []string     `json:"install" yaml:"install"`
	Triggers    []Trigger    `json:"triggers" yaml:"triggers"`
	Subpackages []Subpackage `json:"subpackages" yaml:"subpackages"`
	Sources     []Source     `json:"sources" yaml:"sources"`
	Options     []string     `json:"options" yaml:"options"`

	// Parsed from the secfixes comment block
	Secfixes []Secfix `json:"secfixes" yaml:"secfixes"`

	// Raw holds evaluated scalar fields verbatim, plus any extra variables
	// the caller asked for.
	Raw map[string]string `json:"raw,omitempty" yaml:"raw,omitempty"`

	Warnings Warnings `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Trigger is a trigger script together with the paths it monitors.
type Trigger struct {
	Name    string `json:"name" yaml:"name"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Subpackage is an entry of subpackages, written as name[:splitfunc[:arch]].
type Subpackage struct {
	Name      string `json:"name" yaml:"name"`
	SplitFunc string `json:"split_func,omitempty" yaml:"split_func,omitempty"`
	Arch      string `json:"arch,omitempty" yaml:"arch,omitempty"`
}

// Source is a remote or local source file with its checksums.
type Source struct {
	// Name is the local file name.
	Name string `json:"name" yaml:"name"`
	// URI is a remote URL, or a path relative to the APKBUILD directory.
	URI    string `json:"uri" yaml:"uri"`
	Remote bool   `json:"remote" yaml:"remote"`

	SHA512 string `json:"sha512,omitempty" yaml:"sha512,omitempty"`
	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
}

// Secfix lists the vulnerabilities fixed in a version-release, or "0" for
// those that never affected the package.
type Secfix struct {
	Version string   `json:"version" yaml:"version"`
	Fixes   []string `json:"fixes" yaml:"fixes"`
}
