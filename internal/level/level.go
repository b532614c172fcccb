package level

// Method is one of the write operations the indexing transport understands.
type Method int

const (
	MethodLog Method = iota
	MethodError
	MethodWarn
	MethodInfo
)

func (m Method) String() string {
	switch m {
	case MethodError:
		return "error"
	case MethodWarn:
		return "warn"
	case MethodInfo:
		return "info"
	default:
		return "log"
	}
}

// Info is the canonical form of a level name.
// LevelNum runs from 0 (emergency) to 7 (debug).
type Info struct {
	Method   Method
	Level    string
	LevelNum int
}

type group struct {
	method   Method
	levelNum int
}

var defaultGroup = group{method: MethodLog, levelNum: 5}

var groups = map[string]group{
	"emerg":    {MethodError, 0},
	"alert":    {MethodError, 1},
	"crit":     {MethodError, 2},
	"error":    {MethodError, 3},
	"warn":     {MethodWarn, 4},
	"warning":  {MethodWarn, 4},
	"log":      {MethodLog, 5},
	"notice":   {MethodLog, 5},
	"info":     {MethodInfo, 6},
	"verbose":  {MethodInfo, 6},
	"profiler": {MethodInfo, 6},
	"debug":    {MethodInfo, 7},
	"silly":    {MethodInfo, 7},
}

// Resolve maps a level name onto its method and rank. Matching is
// case-sensitive and unknown names fall into the log/5 group.
func Resolve(name string) Info {
	g, ok := groups[name]
	if !ok {
		g = defaultGroup
	}
	return Info{Method: g.method, Level: name, LevelNum: g.levelNum}
}

// Enabled reports whether a message logged at name passes the threshold.
func Enabled(threshold, name string) bool {
	return Resolve(name).LevelNum <= Resolve(threshold).LevelNum
}
