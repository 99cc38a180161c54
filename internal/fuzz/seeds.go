package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB, ограничение для тестового корпуса
	maxFuzzInput = 1 << 16  // 64 KiB
)

var rubySeeds = []string{
	"# typed: true\nclass A\n  def foo(a, b = 1, *rest, &blk); end\nend\n",
	"# typed: strict\nmodule M\n  class << self\n    def build; end\n  end\nend\n",
	"class B < A::C\n  include Comparable\n  extend Forwardable\n  attr_accessor :x\nend\n",
	"X = Struct.new(:a, :b)\nFoo.new(1).bar(2, k: 3)\n",
	"#typed:false\n::Top::Nested = 1\n",
	"\xef\xbb\xbf# typed: ignore\r\nputs 1\r\n",
	"def (\n",
	"class\n",
	"# typed: bogus\n",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range rubySeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds adds every *.rb and *.rbi file under testdata/.
func addTestdataSeeds(f *testing.F) {
	root := "testdata"
	if _, err := os.Stat(root); err != nil {
		return
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".rb" && ext != ".rbi" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
	if err != nil {
		return
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
