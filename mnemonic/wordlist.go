package mnemonic

import (
	"sync"

	"github.com/cosmos/go-bip39"
)

const wordListSize = 1 << bitsPerWord

var (
	wordsOnce sync.Once
	wordList  []string
	wordIndex map[string]uint16
)

// words returns the BIP39 English word list and its reverse index. The list
// is copied from go-bip39 on first use, so reassigning bip39.WordList does
// not affect encoding. Both are read-only afterwards.
func words() ([]string, map[string]uint16) {
	wordsOnce.Do(func() {
		wordList = append([]string(nil), bip39.EnglishWordList...)
		if len(wordList) != wordListSize {
			panic("mnemonic: BIP39 word list has wrong size")
		}

		wordIndex = make(map[string]uint16, len(wordList))
		for i, w := range wordList {
			wordIndex[w] = uint16(i)
		}
	})

	return wordList, wordIndex
}

// Word returns the word at index i of the English word list.
func Word(i uint16) (string, bool) {
	list, _ := words()
	if int(i) >= len(list) {
		return "", false
	}

	return list[i], true
}

// WordIndex returns the position of w in the English word list.
func WordIndex(w string) (uint16, bool) {
	_, index := words()
	i, ok := index[w]

	return i, ok
}
