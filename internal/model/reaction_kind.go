package model

import "fmt"

// ReactionKind 反应类型，启动时由配置解析一次
type ReactionKind uint8

const (
	ReactionKindInsightful ReactionKind = 1
	ReactionKindLike       ReactionKind = 2
)

var reactionKindNames = map[string]ReactionKind{
	"insightful": ReactionKindInsightful,
	"like":       ReactionKindLike,
}

// ParseReactionKind 将配置中的名字解析为类型常量
func ParseReactionKind(name string) (ReactionKind, error) {
	kind, ok := reactionKindNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown reaction kind %q", name)
	}
	return kind, nil
}

func (k ReactionKind) String() string {
	for name, v := range reactionKindNames {
		if v == k {
			return name
		}
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}
