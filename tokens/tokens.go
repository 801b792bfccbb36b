package tokens

import (
	"github.com/dmarino/jupiter-arbitrage/config"
	"github.com/gagliardetto/solana-go"
)

var (
	SOL  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	USDC = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	USDT = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	MSOL = solana.MustPublicKeyFromBase58("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So")
	RAY  = solana.MustPublicKeyFromBase58("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R")
	ORCA = solana.MustPublicKeyFromBase58("orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE")
	JUP  = solana.MustPublicKeyFromBase58("JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN")
	BONK = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
)

const (
	SolDecimals  = 9
	UsdcDecimals = 6
)

// DefaultPairs is the pair set used when the config names none.
func DefaultPairs() []*config.Pair {
	return []*config.Pair{
		{Base: SOL, Quote: USDC},
		{Base: SOL, Quote: USDT},
		{Base: SOL, Quote: MSOL},
		{Base: SOL, Quote: RAY},
		{Base: SOL, Quote: ORCA},
		{Base: SOL, Quote: JUP},
		{Base: SOL, Quote: BONK},
		{Base: USDC, Quote: USDT},
		{Base: USDC, Quote: RAY},
		{Base: USDC, Quote: ORCA},
		{Base: USDC, Quote: JUP},
	}
}
