package population

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// NewRNG：数字种子直接使用；其他字符串取 FNV-64a；空串取当前时间
// 返回实际使用的种子，用同一个种子再次调用得到相同的随机序列
func NewRNG(seed string) (string, *rand.Rand) {
	seed = strings.TrimSpace(seed)
	var v uint64
	switch {
	case seed == "":
		v = uint64(time.Now().UnixNano())
		seed = strconv.FormatUint(v, 10)
	default:
		if n, err := strconv.ParseUint(seed, 10, 64); err == nil {
			v = n
		} else {
			h := fnv.New64a()
			_, _ = h.Write([]byte(seed))
			v = h.Sum64()
		}
	}
	return seed, rand.New(rand.NewPCG(v, v^0x9e3779b97f4a7c15))
}
