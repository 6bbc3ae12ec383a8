/*

This file contains the static bond instrument table. Bonds are defined per
network; inactive bonds are still valued for treasury metrics but are not
offered for new deposits.

*/

package config

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/snowbound-dao/sdm/internal/types"
)

// ErrUnknownBond is returned when a bond name is not in the table.
var ErrUnknownBond = errors.New("unknown bond")

// MIMBond is the stablecoin reserve bond. Deposits are paused but the
// treasury still holds its reserves, so it stays in the valuation set.
var MIMBond = types.BondDescriptor{
	Name:        "mim",
	DisplayName: "MIM",
	BondToken:   types.SymbolReserve,
	Kind:        types.BondKindStable,
	IsActive:    false,
	NetworkAddrs: map[int64]types.BondAddresses{
		AvalancheMainnetChainID: {
			Bond:    common.HexToAddress("0x587bc7775f88d9A190aa02D30f7dF2C9Bb183F5D"),
			Reserve: common.HexToAddress("0x130966628846BFd36ff31a822705796e8cb8C18D"),
		},
	},
	ReserveDecimals: 18,
}

// WAVAXBond is the wrapped gas token bond; its reserve is priced by oracle
// rather than assumed to be a dollar.
var WAVAXBond = types.BondDescriptor{
	Name:        "wavax",
	DisplayName: "wAVAX",
	BondToken:   types.SymbolGasToken,
	Kind:        types.BondKindCustom,
	IsActive:    false,
	NetworkAddrs: map[int64]types.BondAddresses{
		AvalancheMainnetChainID: {
			Bond:    common.HexToAddress("0x472c18c4079eCb68629F4FbA1141172404BFEE9C"),
			Reserve: common.HexToAddress("0xb31f66aa3c1e785363f0875a1b74e27b85fd66c7"),
		},
	},
	ReserveDecimals: 18,
}

// MIMLPBond is the reserve/protocol-token liquidity pair bond.
var MIMLPBond = types.BondDescriptor{
	Name:        "mim_snow_lp",
	DisplayName: "SNOW-MIM LP",
	BondToken:   types.SymbolReserve,
	Kind:        types.BondKindLP,
	IsActive:    true,
	LPURL:       "https://www.traderjoexyz.com/#/pool/0x130966628846BFd36ff31a822705796e8cb8C18D/0x7d1232b90d3f809a54eeaeebc639c62df8a8942f",
	NetworkAddrs: map[int64]types.BondAddresses{
		AvalancheMainnetChainID: {
			Bond:    common.HexToAddress("0x90A08fdF9f433954930f19E97FE9A1B0bDBf5C5f"),
			Reserve: common.HexToAddress("0x425c45aDfB53861e5Db8F17d9b072ab60d4404d8"),
		},
	},
	ReserveDecimals: 18,
}

// AVAXLPBond is the gas-token/protocol-token liquidity pair bond.
var AVAXLPBond = types.BondDescriptor{
	Name:        "avax_snow_lp",
	DisplayName: "SNOW-AVAX LP",
	BondToken:   types.SymbolGasToken,
	Kind:        types.BondKindCustomLP,
	IsActive:    true,
	LPURL:       "https://traderjoexyz.com/#/pool/AVAX/0x7d1232b90d3f809a54eeaeebc639c62df8a8942f",
	NetworkAddrs: map[int64]types.BondAddresses{
		AvalancheMainnetChainID: {
			Bond:    common.HexToAddress("0x288e6d7f4935c1f4d2862715306d4bdf8dea6592"),
			Reserve: common.HexToAddress("0xa3d2cfe49df9d1ea0dc589b69252e1eddc417d6d"),
		},
	},
	ReserveDecimals: 18,
}

// AllBonds is the full instrument table, in display order.
var AllBonds = []types.BondDescriptor{MIMBond, WAVAXBond, MIMLPBond, AVAXLPBond}

// ActiveBonds returns the bonds currently open for deposits.
func ActiveBonds() []types.BondDescriptor {
	var active []types.BondDescriptor
	for _, b := range AllBonds {
		if b.IsActive {
			active = append(active, b)
		}
	}
	return active
}

// GetBond looks up a bond descriptor by name.
func GetBond(name string) (types.BondDescriptor, error) {
	for _, b := range AllBonds {
		if b.Name == name {
			return b, nil
		}
	}
	return types.BondDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownBond, name)
}
