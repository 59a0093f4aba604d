// Package config is the board library: a directory of board files in the
// text format, one board per ".txt" file, named after the file.
//
// Boards are parsed and validated on first use and cached. Loading returns a
// private copy so callers may modify it. The default board is "8x8" when the
// library has it, otherwise the first board by name, otherwise a built-in
// 5x5 board.
//
// Usage:
//
//	boards, err := config.NewManager("boards")
//	if err != nil {
//		klog.Fatal(err)
//	}
//	b, err := boards.LoadBoard("32x32")
//	infos, err := boards.ListBoards()
package config
