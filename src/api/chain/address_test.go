package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"))
	assert.True(t, ValidAddress("0x000000000000000000000000000000000000dead"))
	assert.False(t, ValidAddress("833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"))
	assert.False(t, ValidAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA0291"))
	assert.False(t, ValidAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913 "))
	assert.False(t, ValidAddress("0xZZ3589fCD6eDb6E08f4c7C32D4f71b54bdA02913"))
	assert.False(t, ValidAddress(""))
}

func TestIsAlreadyKnown(t *testing.T) {
	assert.True(t, isAlreadyKnown(errString("already known")))
	assert.True(t, isAlreadyKnown(errString("Known transaction: 0xabc")))
	assert.False(t, isAlreadyKnown(errString("insufficient funds")))
	assert.True(t, isNonceTooLow(errString("nonce too low: next nonce 5, tx nonce 4")))
}

type errString string

func (e errString) Error() string { return string(e) }
