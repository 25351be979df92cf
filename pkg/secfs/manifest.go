package secfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"
)

// Manifest lists credentials to provision.
//
//	credentials:
//	  - type: ca
//	    tag: 16842753
//	    file: AmazonRootCA1.pem
//	  - type: psk
//	    tag: 42
//	    content: "0011223344"
type Manifest struct {
	Credentials []Credential `yaml:"credentials"`
}

// Credential is one manifest entry. Content takes precedence over File,
// relative files are resolved against the manifest directory.
type Credential struct {
	Type    CredType `yaml:"type"`
	Tag     SecTag   `yaml:"tag"`
	File    string   `yaml:"file,omitempty"`
	Content string   `yaml:"content,omitempty"`
}

// LoadManifest reads a manifest file and loads the referenced files.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for n := range m.Credentials {
		cred := &m.Credentials[n]
		if cred.Content != "" || cred.File == "" {
			continue
		}
		file := cred.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%s: credential %s/%s: %w", path, cred.Type, cred.Tag, err)
		}
		cred.Content = string(content)
	}
	return m, nil
}

// ParseManifest decodes a manifest without loading files.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for n, cred := range m.Credentials {
		if cred.Tag > MaxSecTag {
			return nil, fmt.Errorf("credentials[%d]: tag %d out of range", n, cred.Tag)
		}
		if cred.Content == "" && cred.File == "" {
			return nil, fmt.Errorf("credentials[%d]: content or file required", n)
		}
	}
	return &m, nil
}

// Apply writes every credential and returns how many were written.
// It stops at the first failure.
func (m *Manifest) Apply(ctx context.Context, cmng *CMNG) (int, error) {
	for n, cred := range m.Credentials {
		if _, err := cmng.Write(ctx, cred.Type, cred.Tag, cred.Content); err != nil {
			return n, fmt.Errorf("provision %s/%s: %w", cred.Type, cred.Tag, err)
		}
		glog.Infof("provisioned %s/%s (%d bytes)", cred.Type, cred.Tag, len(cred.Content))
	}
	return len(m.Credentials), nil
}
