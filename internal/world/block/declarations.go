package block

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Declaration - статическое описание простого кубического блока из YAML-файла.
// Блоки с собственной геометрией или объектами регистрируются кодом.
type Declaration struct {
	ID        uint8    `yaml:"id"`
	Name      string   `yaml:"name"`
	Solid     bool     `yaml:"solid"`
	FullBlock *bool    `yaml:"full_block"`
	Opaque    bool     `yaml:"opaque"`
	Material  string   `yaml:"material"`
	Texture   uint16   `yaml:"texture"`
	Textures  []uint16 `yaml:"textures"` // 6 значений в порядке west,east,down,up,north,south
	Drops     []Drop   `yaml:"drops"`
}

// DeclarationFile - корень YAML-файла деклараций
type DeclarationFile struct {
	Blocks []Declaration `yaml:"blocks"`
}

// ParseDeclarations разбирает YAML со списком блоков
func ParseDeclarations(data []byte) ([]*Descriptor, error) {
	var file DeclarationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ошибка разбора деклараций блоков: %w", err)
	}

	out := make([]*Descriptor, 0, len(file.Blocks))
	for _, decl := range file.Blocks {
		d, err := decl.Descriptor()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadDeclarations читает YAML-файл и регистрирует все блоки из него
func LoadDeclarations(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	decls, err := ParseDeclarations(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for _, d := range decls {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// Descriptor превращает декларацию в дескриптор
func (decl Declaration) Descriptor() (*Descriptor, error) {
	if decl.Name == "" {
		return nil, fmt.Errorf("блок %d: пустое имя", decl.ID)
	}

	full := true
	if decl.FullBlock != nil {
		full = *decl.FullBlock
	}

	d := &Descriptor{
		ID:        BlockID(decl.ID),
		Name:      decl.Name,
		Solid:     decl.Solid,
		FullBlock: full,
		Opaque:    decl.Opaque,
		Material:  decl.Material,
		Textures:  UniformTextures(decl.Texture),
		Drops:     decl.Drops,
	}
	if d.Material == "" {
		d.Material = "opaque"
	}

	switch len(decl.Textures) {
	case 0:
	case len(d.Textures):
		copy(d.Textures[:], decl.Textures)
	default:
		return nil, fmt.Errorf("блок %s: ожидалось %d текстур, получено %d", decl.Name, len(d.Textures), len(decl.Textures))
	}
	return d, nil
}
