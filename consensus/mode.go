package consensus

import "fmt"

// Mode 节点在共识中的角色，只有 validator 会构建提案
type Mode int

const (
	ModeValidator Mode = iota
	ModeFull
	ModeSeed
)

func (m Mode) String() string {
	switch m {
	case ModeValidator:
		return "validator"
	case ModeFull:
		return "full"
	case ModeSeed:
		return "seed"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode 解析配置或命令行中的角色名
func ParseMode(s string) (Mode, error) {
	switch s {
	case "validator":
		return ModeValidator, nil
	case "full":
		return ModeFull, nil
	case "seed":
		return ModeSeed, nil
	default:
		return 0, fmt.Errorf("unknown node mode %q", s)
	}
}
