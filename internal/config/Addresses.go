package config

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnsupportedNetwork is returned when no contract addresses are known for
// a chain ID.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// ProtocolAddresses holds the deployed contract addresses for one network.
type ProtocolAddresses struct {
	// Token is the protocol token (SNOW).
	Token common.Address
	// StakedToken is the rebasing staked token (sSNOW).
	StakedToken common.Address
	// WrappedToken is the non-rebasing wrapper (wsSNOW).
	WrappedToken common.Address

	// Staking is the staking contract; sSNOW spends are approved here.
	Staking common.Address
	// StakingHelper stakes in a single call; SNOW spends are approved here.
	StakingHelper common.Address

	// Treasury holds the protocol reserves; bond valuations read balances
	// held by this address.
	Treasury common.Address
	// Redeem is the fixed-value redemption contract.
	Redeem common.Address
	// DAO is the DAO treasury wallet, excluded from circulating supply math.
	DAO common.Address

	// ReservePair is the reserve/protocol-token liquidity pair used for
	// market price discovery.
	ReservePair common.Address
}

// AvalancheMainnetChainID is the only network the protocol is deployed on.
const AvalancheMainnetChainID int64 = 43114

var protocolAddresses = map[int64]ProtocolAddresses{
	AvalancheMainnetChainID: {
		Token:         common.HexToAddress("0x7d1232B90D3F809A54eeaeeBC639C62dF8a8942f"),
		StakedToken:   common.HexToAddress("0x4Da9d643d011669f172c90D1d9508e3A1Cc5BFA6"),
		WrappedToken:  common.HexToAddress("0x58AD4Ab0c6B19dd7576e7C9180Db7B0aD025E19B"),
		Staking:       common.HexToAddress("0xBa49e6aF588beCFaeE92aF2518b38Fe5c67A5cB7"),
		StakingHelper: common.HexToAddress("0x096BBfB78311227b805c968b070a81D358c13379"),
		Treasury:      common.HexToAddress("0x1c46450211CB2646cc1DA3c5242422967eD9e04c"),
		Redeem:        common.HexToAddress("0xF2b696DdcF3C45fC4c4Bbd93e6Bb0E1b1997a0dE"),
		DAO:           common.HexToAddress("0x50386d425aE25BD46f373a5a3E495F2a370Ba77B"),
		ReservePair:   common.HexToAddress("0x425c45aDfB53861e5Db8F17d9b072ab60d4404d8"),
	},
}

// GetAddresses returns the protocol address table for a chain ID.
func GetAddresses(chainID int64) (ProtocolAddresses, error) {
	addrs, ok := protocolAddresses[chainID]
	if !ok {
		return ProtocolAddresses{}, fmt.Errorf("%w: chain id %d", ErrUnsupportedNetwork, chainID)
	}
	return addrs, nil
}
