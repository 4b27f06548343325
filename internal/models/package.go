package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// PackageInfo is the metadata of a binary package, read from .PKGINFO
type PackageInfo struct {
	// Core metadata
	Name        string `json:"pkgname" yaml:"pkgname"`
	Version     string `json:"pkgver" yaml:"pkgver"`
	Release     int    `json:"pkgrel" yaml:"pkgrel"`
	Description string `json:"pkgdesc" yaml:"pkgdesc"`
	URL         string `json:"url" yaml:"url"`
	Arch        string `json:"arch" yaml:"arch"`
	License     string `json:"license" yaml:"license"`
	Origin      string `json:"origin" yaml:"origin"`
	Maintainer  string `json:"maintainer,omitempty" yaml:"maintainer,omitempty"`
	Packager    string `json:"packager" yaml:"packager"`

	// Relations
	Depends          []Dependency `json:"depends" yaml:"depends"`
	Conflicts        []Dependency `json:"conflicts" yaml:"conflicts"`
	InstallIf        []Dependency `json:"install_if" yaml:"install_if"`
	Provides         []Dependency `json:"provides" yaml:"provides"`
	ProviderPriority *uint32      `json:"provider_priority,omitempty" yaml:"provider_priority,omitempty"`
	Replaces         []Dependency `json:"replaces" yaml:"replaces"`
	ReplacesPriority *uint32      `json:"replaces_priority,omitempty" yaml:"replaces_priority,omitempty"`
	Triggers         []string     `json:"triggers" yaml:"triggers"`

	// Build identifiers
	Commit        string `json:"commit,omitempty" yaml:"commit,omitempty"`
	BuildDate     int64  `json:"builddate" yaml:"builddate"`
	InstalledSize int64  `json:"size" yaml:"size"`
	DataHash      string `json:"datahash" yaml:"datahash"`

	// Unrecognized keys, in file order
	Extra []KeyValue `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// KeyValue is an opaque key/value pair preserved as found.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// BuildTime returns the build date as a time, or the zero time if unset.
func (p *PackageInfo) BuildTime() time.Time {
	if p.BuildDate == 0 {
		return time.Time{}
	}
	return time.Unix(p.BuildDate, 0).UTC()
}

// SignatureInfo describes one signature entry of the signature segment.
// The signature itself is not verified.
type SignatureInfo struct {
	// Algorithm is the scheme from the entry name, e.g. RSA or RSA256.
	Algorithm string `json:"alg" yaml:"alg"`
	// KeyName identifies the signer's public key,
	// e.g. alpine-devel@lists.alpinelinux.org-6165ee59.rsa.pub.
	KeyName string `json:"keyname" yaml:"keyname"`
	Raw     []byte `json:"-" yaml:"-"`
}

// ScriptKind is the kind of an install script in the control segment.
type ScriptKind string

const (
	ScriptPreInstall    ScriptKind = "pre-install"
	ScriptPostInstall   ScriptKind = "post-install"
	ScriptPreUpgrade    ScriptKind = "pre-upgrade"
	ScriptPostUpgrade   ScriptKind = "post-upgrade"
	ScriptPreDeinstall  ScriptKind = "pre-deinstall"
	ScriptPostDeinstall ScriptKind = "post-deinstall"
	ScriptTrigger       ScriptKind = "trigger"
)

// ParseScriptKind maps a control entry name such as ".post-install" to its
// kind.
func ParseScriptKind(name string) (ScriptKind, bool) {
	if len(name) < 2 || name[0] != '.' {
		return "", false
	}
	switch k := ScriptKind(name[1:]); k {
	case ScriptPreInstall, ScriptPostInstall, ScriptPreUpgrade, ScriptPostUpgrade,
		ScriptPreDeinstall, ScriptPostDeinstall, ScriptTrigger:
		return k, true
	}
	return "", false
}

// Script is an install script carried in the control segment.
type Script struct {
	Kind    ScriptKind `json:"kind" yaml:"kind"`
	Content []byte     `json:"-" yaml:"-"`
}

// FileType is the type of an entry in the data segment, using apk's letters.
type FileType string

const (
	FileRegular   FileType = "r"
	FileHardlink  FileType = "H"
	FileSymlink   FileType = "l"
	FileChar      FileType = "c"
	FileBlock     FileType = "b"
	FileDirectory FileType = "d"
	FileFifo      FileType = "p"
)

// FileInfo is an entry of the package's file inventory.
type FileInfo struct {
	Path       string    `json:"path" yaml:"path"`
	Type       FileType  `json:"type" yaml:"type"`
	LinkTarget string    `json:"link_target,omitempty" yaml:"link_target,omitempty"`
	Uname      string    `json:"uname,omitempty" yaml:"uname,omitempty"`
	Gname      string    `json:"gname,omitempty" yaml:"gname,omitempty"`
	UID        int       `json:"uid" yaml:"uid"`
	GID        int       `json:"gid" yaml:"gid"`
	Size       int64     `json:"size" yaml:"size"`
	Mode       Mode      `json:"mode" yaml:"mode"`
	ModTime    time.Time `json:"mtime" yaml:"mtime"`
	Device     uint64    `json:"device,omitempty" yaml:"device,omitempty"`
	Digest     string    `json:"digest,omitempty" yaml:"digest,omitempty"`
	Xattrs     []Xattr   `json:"xattrs,omitempty" yaml:"xattrs,omitempty"`
}

// Xattr is an extended file attribute. Value is opaque and is rendered as
// standard base64 text in every output format.
type Xattr struct {
	Name  string `json:"name" yaml:"name"`
	Value []byte `json:"value" yaml:"value"`
}

// encodedXattr is the serialized form of an Xattr.
type encodedXattr struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

func (x Xattr) encode() encodedXattr {
	return encodedXattr{Name: x.Name, Value: base64.StdEncoding.EncodeToString(x.Value)}
}

func (x *Xattr) decode(e encodedXattr) error {
	value, err := base64.StdEncoding.DecodeString(e.Value)
	if err != nil {
		return fmt.Errorf("xattr %s: invalid base64 value: %w", e.Name, err)
	}
	x.Name, x.Value = e.Name, value
	return nil
}

// MarshalJSON implements json.Marshaler.
func (x Xattr) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.encode())
}

// UnmarshalJSON implements json.Unmarshaler.
func (x *Xattr) UnmarshalJSON(data []byte) error {
	var e encodedXattr
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	return x.decode(e)
}

// MarshalYAML implements yaml.Marshaler.
func (x Xattr) MarshalYAML() (any, error) {
	return x.encode(), nil
}

// UnmarshalYAML implements yaml's obsolete Unmarshaler, which needs no
// import of the yaml package.
func (x *Xattr) UnmarshalYAML(unmarshal func(any) error) error {
	var e encodedXattr
	if err := unmarshal(&e); err != nil {
		return err
	}
	return x.decode(e)
}

// Checksum contains various checksums for a file
type Checksum struct {
	SHA1   string `json:"sha1" yaml:"sha1"`
	SHA256 string `json:"sha256" yaml:"sha256"`
	SHA512 string `json:"sha512" yaml:"sha512"`
	Size   int64  `json:"size" yaml:"size"`
}
