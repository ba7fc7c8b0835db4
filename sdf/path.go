package sdf

import (
	"strings"

	"github.com/pkg/errors"
)

// Path is an absolute prim path such as /World/Cube.
type Path string

const AbsoluteRoot Path = "/"

func (p Path) String() string {
	return string(p)
}

func (p Path) IsRoot() bool {
	return p == AbsoluteRoot
}

func (p Path) IsValid() bool {
	return ValidatePath(p) == nil
}

func ValidatePath(p Path) error {
	s := string(p)
	if s == "/" {
		return nil
	}
	if !strings.HasPrefix(s, "/") {
		return errors.Errorf("path %q is not absolute", s)
	}
	for _, elem := range strings.Split(s[1:], "/") {
		if !IsValidIdentifier(elem) {
			return errors.Errorf("path %q has invalid element %q", s, elem)
		}
	}
	return nil
}

func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func (p Path) Name() string {
	if p.IsRoot() {
		return ""
	}
	s := string(p)
	return s[strings.LastIndexByte(s, '/')+1:]
}

func (p Path) Parent() Path {
	if p.IsRoot() {
		return AbsoluteRoot
	}
	s := string(p)
	i := strings.LastIndexByte(s, '/')
	if i <= 0 {
		return AbsoluteRoot
	}
	return Path(s[:i])
}

func (p Path) AppendChild(name string) Path {
	if p.IsRoot() {
		return Path("/" + name)
	}
	return Path(string(p) + "/" + name)
}

// Ancestors returns the prim paths above p, closest first, excluding the root.
func (p Path) Ancestors() []Path {
	var result []Path
	for cur := p.Parent(); !cur.IsRoot(); cur = cur.Parent() {
		result = append(result, cur)
	}
	return result
}
