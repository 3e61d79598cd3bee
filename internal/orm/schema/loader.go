package schema

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// File is the on-disk schema declaration
type File struct {
	Namespace string       `yaml:"namespace"`
	Entities  []EntityDecl `yaml:"entities"`
}

// EntityDecl declares one entity type
type EntityDecl struct {
	Name       string          `yaml:"name"`
	Namespace  string          `yaml:"namespace"`
	Type       string          `yaml:"type"`
	Attributes []AttributeDecl `yaml:"attributes"`
}

// AttributeDecl declares one attribute
type AttributeDecl struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Association string `yaml:"association"`
	Predicate   string `yaml:"predicate"`
	Target      string `yaml:"target"`
}

// LoadFile reads a YAML schema file into the registry and resolves it
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open schema file %s", path)
	}
	defer f.Close()

	return r.LoadYAML(f)
}

// LoadYAML reads a YAML schema document into the registry and resolves it
func (r *Registry) LoadYAML(rd io.Reader) error {
	var file File
	if err := yaml.NewDecoder(rd).Decode(&file); err != nil {
		return errors.Wrap(err, "failed to decode schema")
	}

	for _, decl := range file.Entities {
		et, err := decl.build(file.Namespace)
		if err != nil {
			return err
		}
		if err := r.Register(et); err != nil {
			return err
		}
	}

	return r.Resolve()
}

func (d EntityDecl) build(defaultNamespace string) (*EntityType, error) {
	ns := d.Namespace
	if ns == "" {
		ns = defaultNamespace
	}

	opts := []TypeOption{WithNamespace(ns)}
	if d.Type != "" {
		opts = append(opts, WithType(d.Type))
	}
	et := NewEntityType(d.Name, opts...)

	for _, attr := range d.Attributes {
		kind, err := ParseKind(attr.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", d.Name, attr.Name)
		}
		class, err := ParseClassification(attr.Association)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", d.Name, attr.Name)
		}

		attrOpts := []AttributeOption{WithKind(kind), WithAssociation(class)}
		if attr.Predicate != "" {
			attrOpts = append(attrOpts, WithPredicate(attr.Predicate))
		}
		if attr.Target != "" {
			attrOpts = append(attrOpts, WithTarget(attr.Target))
		}
		if _, err := et.Declare(attr.Name, attrOpts...); err != nil {
			return nil, err
		}
	}

	return et, nil
}
