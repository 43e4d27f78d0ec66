package cfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BlockDef describes one basic block of a program graph.
type BlockDef struct {
	// Addr is the block's entry address.
	Addr uint64 `yaml:"addr"`

	// Instrs lists the instruction addresses of the block in program order.
	// If empty, the block is treated as a single instruction at Addr.
	Instrs []uint64 `yaml:"instrs,omitempty"`

	// Succs lists the entry addresses of the successor blocks.
	Succs []uint64 `yaml:"succs,omitempty"`

	// Exit marks the block as a normal end of execution.
	Exit bool `yaml:"exit,omitempty"`

	// Trap, when non-empty, makes stepping through this block fail with the
	// given message. It models per-state execution failures.
	Trap string `yaml:"trap,omitempty"`
}

// InstructionAddrs implements explore.Block.
func (b *BlockDef) InstructionAddrs() []uint64 {
	if len(b.Instrs) == 0 {
		return []uint64{b.Addr}
	}
	return append([]uint64(nil), b.Instrs...)
}

// Program is an explicit control-flow graph.
type Program struct {
	// Name identifies the program in logs and reports.
	Name string `yaml:"name"`

	// Entry is the address execution starts at.
	Entry uint64 `yaml:"entry"`

	// Blocks lists the program's basic blocks.
	Blocks []BlockDef `yaml:"blocks"`

	index map[uint64]*BlockDef
}

// ParseProgram parses a YAML program description and validates the graph.
func ParseProgram(data []byte) (*Program, error) {
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing program: %w", err)
	}
	if err := p.buildIndex(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProgram reads and parses a YAML program file.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program file: %w", err)
	}
	return ParseProgram(data)
}

// NewProgram builds a program from block definitions directly.
func NewProgram(name string, entry uint64, blocks []BlockDef) (*Program, error) {
	p := &Program{Name: name, Entry: entry, Blocks: blocks}
	if err := p.buildIndex(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Program) buildIndex() error {
	if len(p.Blocks) == 0 {
		return fmt.Errorf("program %q has no blocks", p.Name)
	}
	p.index = make(map[uint64]*BlockDef, len(p.Blocks))
	for i := range p.Blocks {
		b := &p.Blocks[i]
		if _, dup := p.index[b.Addr]; dup {
			return fmt.Errorf("program %q: duplicate block %#x", p.Name, b.Addr)
		}
		p.index[b.Addr] = b
	}
	if _, ok := p.index[p.Entry]; !ok {
		return fmt.Errorf("program %q: entry %#x has no block", p.Name, p.Entry)
	}
	for _, b := range p.Blocks {
		for _, succ := range b.Succs {
			if _, ok := p.index[succ]; !ok {
				return fmt.Errorf("program %q: block %#x jumps to unknown address %#x",
					p.Name, b.Addr, succ)
			}
		}
	}
	return nil
}

// Block returns the block at the given entry address.
func (p *Program) Block(addr uint64) (*BlockDef, bool) {
	b, ok := p.index[addr]
	return b, ok
}
