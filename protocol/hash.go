package protocol

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// RouteHash is keccak256 of the canonical route encoding.
func RouteHash(r Route) Bytes32 {
	return Bytes32(crypto.Keccak256Hash(EncodeRoute(r)))
}

// RewardHash is keccak256 of the canonical reward encoding.
func RewardHash(r Reward) Bytes32 {
	return Bytes32(crypto.Keccak256Hash(EncodeReward(r)))
}

// IntentHash is the chain-independent intent fingerprint:
//
//	keccak256(keccak256(route_bytes) || keccak256(reward_bytes))
func IntentHash(route Route, reward Reward) Bytes32 {
	return IntentHashFromParts(RouteHash(route), RewardHash(reward))
}

func IntentHashFromParts(routeHash, rewardHash Bytes32) Bytes32 {
	return Bytes32(crypto.Keccak256Hash(routeHash[:], rewardHash[:]))
}

func (i Intent) Hash() Bytes32 {
	return IntentHash(i.Route, i.Reward)
}
