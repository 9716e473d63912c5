package domain

import "fmt"

// Group identifies one of the canonical asset categories every allocation
// map must populate.
type Group int

const (
	GroupBTC Group = iota
	GroupETH
	GroupStablecoins
	GroupSOL
	GroupL1L0
	GroupL2Scaling
	GroupDeFi
	GroupAIData
	GroupGamingNFT
	GroupMemecoins
	GroupOthers
)

// GroupCount is the number of canonical groups.
const GroupCount = 11

func (g Group) String() string {
	switch g {
	case GroupBTC:
		return "BTC"
	case GroupETH:
		return "ETH"
	case GroupStablecoins:
		return "Stablecoins"
	case GroupSOL:
		return "SOL"
	case GroupL1L0:
		return "L1/L0 majors"
	case GroupL2Scaling:
		return "L2/Scaling"
	case GroupDeFi:
		return "DeFi"
	case GroupAIData:
		return "AI/Data"
	case GroupGamingNFT:
		return "Gaming/NFT"
	case GroupMemecoins:
		return "Memecoins"
	case GroupOthers:
		return "Others"
	default:
		return "unknown"
	}
}

// CanonicalGroups returns all groups in canonical display order.
func CanonicalGroups() []Group {
	return []Group{
		GroupBTC, GroupETH, GroupStablecoins, GroupSOL, GroupL1L0,
		GroupL2Scaling, GroupDeFi, GroupAIData, GroupGamingNFT,
		GroupMemecoins, GroupOthers,
	}
}

// ParseGroup maps a display name back to its Group.
func ParseGroup(name string) (Group, error) {
	for _, g := range CanonicalGroups() {
		if g.String() == name {
			return g, nil
		}
	}
	return GroupOthers, fmt.Errorf("unknown asset group %q", name)
}

// MarshalText implements encoding.TextMarshaler so Targets serialize with
// display names as keys.
func (g Group) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Group) UnmarshalText(text []byte) error {
	parsed, err := ParseGroup(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
