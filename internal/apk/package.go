package apk

import (
	"strings"

	"github.com/package-url/packageurl-go"
	"github.com/ralt/alpkit/internal/models"
)

// Package is a decoded package container. It is immutable once loaded.
type Package struct {
	// Path is the container file, when opened from disk.
	Path string
	// Checksums of the container file, when opened from disk.
	Checksums *models.Checksum

	signatures  []models.SignatureInfo
	controlSHA1 string
	info        models.PackageInfo
	scripts     []models.Script
	files       []models.FileInfo
	warnings    models.Warnings
}

// Info returns the metadata read from .PKGINFO.
func (p *Package) Info() models.PackageInfo {
	return p.info
}

// Signatures returns all signature entries, in container order.
func (p *Package) Signatures() []models.SignatureInfo {
	return p.signatures
}

// Signature returns the first signature entry, if the container is signed.
func (p *Package) Signature() (models.SignatureInfo, bool) {
	if len(p.signatures) == 0 {
		return models.SignatureInfo{}, false
	}
	return p.signatures[0], true
}

// Scripts returns the install scripts of the control segment.
func (p *Package) Scripts() []models.Script {
	return p.scripts
}

// Script returns the install script of the given kind.
func (p *Package) Script(kind models.ScriptKind) (models.Script, bool) {
	for _, s := range p.scripts {
		if s.Kind == kind {
			return s, true
		}
	}
	return models.Script{}, false
}

// Files returns the file inventory of the data segment, in archive order.
func (p *Package) Files() []models.FileInfo {
	return p.files
}

// ControlSHA1 returns the hex SHA-1 of the compressed control segment, which
// is what APKINDEX records identify packages by.
func (p *Package) ControlSHA1() string {
	return p.controlSHA1
}

// Warnings returns the non-fatal findings collected while decoding.
func (p *Package) Warnings() models.Warnings {
	return p.warnings
}

// PackageURL returns the package URL identifying this package, e.g.
// pkg:apk/alpine/busybox@1.36.1-r2?arch=x86_64&origin=busybox.
func (p *Package) PackageURL() string {
	qualifiers := map[string]string{}
	if p.info.Arch != "" {
		qualifiers["arch"] = p.info.Arch
	}
	if p.info.Origin != "" {
		qualifiers["origin"] = p.info.Origin
	}
	purl := packageurl.NewPackageURL("apk", "alpine", strings.ToLower(p.info.Name), p.info.Version,
		packageurl.QualifiersFromMap(qualifiers), "")
	return purl.ToString()
}

// Summary is the serializable view of a package.
type Summary struct {
	Path        string                 `json:"path,omitempty" yaml:"path,omitempty"`
	ControlSHA1 string                 `json:"control_sha1" yaml:"control_sha1"`
	PURL        string                 `json:"purl" yaml:"purl"`
	Info        models.PackageInfo     `json:"info" yaml:"info"`
	Signature   []models.SignatureInfo `json:"signatures" yaml:"signatures"`
	Scripts     []models.ScriptKind    `json:"scripts" yaml:"scripts"`
	Files       []models.FileInfo      `json:"files,omitempty" yaml:"files,omitempty"`
	Checksums   *models.Checksum       `json:"checksums,omitempty" yaml:"checksums,omitempty"`
	Warnings    models.Warnings        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Summary returns the serializable view of the package.
func (p *Package) Summary() Summary {
	kinds := make([]models.ScriptKind, 0, len(p.scripts))
	for _, s := range p.scripts {
		kinds = append(kinds, s.Kind)
	}
	sigs := p.signatures
	if sigs == nil {
		sigs = []models.SignatureInfo{}
	}
	return Summary{
		Path:        p.Path,
		ControlSHA1: p.controlSHA1,
		PURL:        p.PackageURL(),
		Info:        p.info,
		Signature:   sigs,
		Scripts:     kinds,
		Files:       p.files,
		Checksums:   p.Checksums,
		Warnings:    p.warnings,
	}
}
