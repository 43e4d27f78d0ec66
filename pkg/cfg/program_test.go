package cfg

import (
	"strings"
	"testing"
)

func TestParseProgram(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid diamond",
			yaml: `
name: diamond
entry: 0x1000
blocks:
  - addr: 0x1000
    succs: [0x2000, 0x3000]
  - addr: 0x2000
    succs: [0x4000]
  - addr: 0x3000
    succs: [0x4000]
  - addr: 0x4000
    exit: true
`,
		},
		{
			name:    "no blocks",
			yaml:    "name: empty\nentry: 0x1000\nblocks: []\n",
			wantErr: "has no blocks",
		},
		{
			name: "duplicate block",
			yaml: `
name: dup
entry: 0x1000
blocks:
  - addr: 0x1000
  - addr: 0x1000
`,
			wantErr: "duplicate block",
		},
		{
			name: "entry missing",
			yaml: `
name: lost
entry: 0x9000
blocks:
  - addr: 0x1000
`,
			wantErr: "entry 0x9000 has no block",
		},
		{
			name: "dangling edge",
			yaml: `
name: dangling
entry: 0x1000
blocks:
  - addr: 0x1000
    succs: [0x2000]
`,
			wantErr: "unknown address",
		},
		{
			name:    "not yaml",
			yaml:    "{{{",
			wantErr: "parsing program",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := ParseProgram([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("ParseProgram() expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProgram() error = %v", err)
			}
			if _, ok := prog.Block(prog.Entry); !ok {
				t.Error("Block(entry) not found after parse")
			}
		})
	}
}

func TestBlockInstructionAddrs(t *testing.T) {
	explicit := &BlockDef{Addr: 0x1000, Instrs: []uint64{0x1000, 0x1004, 0x1008}}
	if got := explicit.InstructionAddrs(); len(got) != 3 || got[1] != 0x1004 {
		t.Errorf("InstructionAddrs() = %v, want the explicit list", got)
	}

	// A block without an instruction list collapses to its entry address.
	implicit := &BlockDef{Addr: 0x2000}
	if got := implicit.InstructionAddrs(); len(got) != 1 || got[0] != 0x2000 {
		t.Errorf("InstructionAddrs() = %v, want [0x2000]", got)
	}
}

func TestNewProgram(t *testing.T) {
	prog, err := NewProgram("direct", 1, []BlockDef{{Addr: 1, Succs: []uint64{2}}, {Addr: 2}})
	if err != nil {
		t.Fatalf("NewProgram() error = %v", err)
	}
	b, ok := prog.Block(1)
	if !ok || len(b.Succs) != 1 {
		t.Errorf("Block(1) = %+v, %v", b, ok)
	}
}
