package backend

import (
	"github.com/gagliardetto/solana-go"
)

type Wallet struct {
	pubkey solana.PublicKey
	prikey solana.PrivateKey
}

func (backend *Backend) ImportWallet(priKey string) error {
	pri, err := solana.PrivateKeyFromBase58(priKey)
	if err != nil {
		return err
	}
	backend.wallets = append(backend.wallets, &Wallet{
		pubkey: pri.PublicKey(),
		prikey: pri,
	})
	backend.player = pri.PublicKey()
	return nil
}

func (backend *Backend) Player() solana.PublicKey {
	return backend.player
}

func (backend *Backend) getWallet(key solana.PublicKey) *solana.PrivateKey {
	for _, wallet := range backend.wallets {
		if wallet.pubkey == key {
			return &wallet.prikey
		}
	}
	return nil
}
