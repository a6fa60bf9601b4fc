package raw

import (
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// filterInstructions accepts ARP and IPv4 frames and drops everything else
// in the kernel.
func filterInstructions() []bpf.Instruction {
	return []bpf.Instruction{
		// 以太网类型 (偏移 12，2 字节)
		&bpf.LoadAbsolute{Off: 12, Size: 2},
		&bpf.JumpIf{Cond: bpf.JumpEqual, Val: unix.ETH_P_ARP, SkipTrue: 1},
		&bpf.JumpIf{Cond: bpf.JumpEqual, Val: unix.ETH_P_IP, SkipFalse: 1},
		&bpf.RetConstant{Val: 65535},
		&bpf.RetConstant{Val: 0},
	}
}

// Filter assembles the socket filter program.
func Filter() (*unix.SockFprog, error) {
	raw, err := bpf.Assemble(filterInstructions())
	if err != nil {
		return nil, err
	}

	filter := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		filter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return &unix.SockFprog{
		Len:    uint16(len(filter)),
		Filter: &filter[0],
	}, nil
}
