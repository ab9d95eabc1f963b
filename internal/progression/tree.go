package progression

import "github.com/p-n-ai/pai-progress/internal/curriculum"

// Status is a skill's unlock state for one learner.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAvailable Status = "available"
	StatusLocked    Status = "locked"
)

// NodeStatus pairs a skill with its status.
type NodeStatus struct {
	SkillID string `json:"skillId"`
	Status  Status `json:"status"`
}

// Classify assigns a status to each skill using graph's prerequisites.
func Classify(graph Graph, skills []curriculum.Skill, completed Set) []NodeStatus {
	out := make([]NodeStatus, len(skills))
	for i, s := range skills {
		out[i] = NodeStatus{SkillID: s.ID, Status: classify(graph, s.ID, completed)}
	}
	return out
}

func classify(graph Graph, id string, completed Set) Status {
	switch {
	case completed.Has(id):
		return StatusCompleted
	case satisfied(graph.Prerequisites(id), completed):
		return StatusAvailable
	default:
		return StatusLocked
	}
}

// TreeNode is a skill as shown in a progression tree.
type TreeNode struct {
	Node
	Name       string                `json:"name"`
	Difficulty curriculum.Difficulty `json:"difficulty"`
	Status     Status                `json:"status"`
}

// TreeStats aggregates a tree for display.
type TreeStats struct {
	Total        int     `json:"total"`
	Completed    int     `json:"completed"`
	Available    int     `json:"available"`
	Locked       int     `json:"locked"`
	TotalWeight  int     `json:"totalWeight"`
	EarnedWeight int     `json:"earnedWeight"`
	Percent      float64 `json:"percent"`
}

// Tree is a discipline's skills laid out for one learner.
type Tree struct {
	Synthetic bool       `json:"synthetic"` // prerequisites come from the tier layout
	Tiers     [][]string `json:"tiers"`
	Nodes     []TreeNode `json:"nodes"`
	Links     []Link     `json:"links"`
	Stats     TreeStats  `json:"stats"`
}

// BuildTree lays out skills in tiers and classifies them against completed.
// Prerequisites come from GraphFor, so authored content wins over the layout.
func BuildTree(skills []curriculum.Skill, completed Set) Tree {
	layout := NewTierLayout(skills)
	graph := GraphFor(skills)
	_, synthetic := graph.(*TierLayout)

	tree := Tree{
		Synthetic: synthetic,
		Tiers:     layout.Tiers(),
		Nodes:     make([]TreeNode, 0, len(skills)),
	}

	nodes := layout.Nodes()
	for i, s := range skills {
		n := nodes[i]
		n.Prerequisites = append([]string{}, graph.Prerequisites(s.ID)...)
		tn := TreeNode{
			Node:       n,
			Name:       s.Name,
			Difficulty: s.Difficulty,
			Status:     classify(graph, s.ID, completed),
		}
		tree.Nodes = append(tree.Nodes, tn)

		tree.Stats.Total++
		tree.Stats.TotalWeight += n.XPWeight
		switch tn.Status {
		case StatusCompleted:
			tree.Stats.Completed++
			tree.Stats.EarnedWeight += n.XPWeight
		case StatusAvailable:
			tree.Stats.Available++
		default:
			tree.Stats.Locked++
		}
	}
	tree.Links = linksOf(graph, nodes)

	if tree.Stats.Total > 0 {
		tree.Stats.Percent = float64(tree.Stats.Completed) * 100 / float64(tree.Stats.Total)
	}
	return tree
}
