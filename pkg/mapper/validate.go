package mapper

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ritzau/storygraph/pkg/model"
)

// ErrMalformedForest is wrapped by every ValidationError
var ErrMalformedForest = errors.New("malformed chapter forest")

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Issue is one structural or field problem found in the forest
type Issue struct {
	ChapterID string `json:"chapterId"`
	Field     string `json:"field"`
	Message   string `json:"message"`
}

func (i Issue) String() string {
	id := i.ChapterID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("chapter %s: %s %s", id, i.Field, i.Message)
}

// ValidationError lists every issue found while validating a forest
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("%s: %s", ErrMalformedForest, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrMalformedForest
}

func (e *ValidationError) add(chapterID, field, format string, args ...any) {
	e.Issues = append(e.Issues, Issue{
		ChapterID: chapterID,
		Field:     field,
		Message:   fmt.Sprintf(format, args...),
	})
}

// ValidateForest checks the shape of a chapter forest: required fields on every
// chapter, depth and ancestry consistent with the tree, and no chapter reachable
// twice. It returns a *ValidationError listing all problems, or nil.
func ValidateForest(roots []*model.ChapterNode) error {
	verr := &ValidationError{}
	seen := make(map[string]bool)

	var visit func(node, parent *model.ChapterNode)
	visit = func(node, parent *model.ChapterNode) {
		if node == nil {
			id := ""
			if parent != nil {
				id = parent.ID
			}
			verr.add(id, "children", "contains a null chapter")
			return
		}

		validateFields(verr, node)

		if node.ID != "" {
			if seen[node.ID] {
				// A repeated id means the structure is not a tree; do not descend again
				verr.add(node.ID, "id", "appears more than once in the forest")
				return
			}
			seen[node.ID] = true
		}

		if parent == nil {
			validateRoot(verr, node)
		} else {
			validateChild(verr, node, parent)
		}

		for _, child := range node.Children {
			visit(child, node)
		}
	}

	for _, root := range roots {
		visit(root, nil)
	}

	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

func validateFields(verr *ValidationError, node *model.ChapterNode) {
	err := validate.Struct(node)
	if err == nil {
		return
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		verr.add(node.ID, "chapter", "%v", err)
		return
	}
	for _, fe := range fieldErrors {
		verr.add(node.ID, fieldPath(fe), "%s", describeFieldError(fe))
	}
}

// fieldPath strips the struct name from the validator namespace (ChapterNode.author.username -> author.username)
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func validateRoot(verr *ValidationError, node *model.ChapterNode) {
	if node.ParentChapterID != nil {
		verr.add(node.ID, "parentChapterId", "must be null for a root chapter, got %q", *node.ParentChapterID)
	}
	if node.Depth != 0 {
		verr.add(node.ID, "depth", "must be 0 for a root chapter, got %d", node.Depth)
	}
	if len(node.AncestorIDs) != 0 {
		verr.add(node.ID, "ancestorIds", "must be empty for a root chapter, got %d entries", len(node.AncestorIDs))
	}
}

func validateChild(verr *ValidationError, node, parent *model.ChapterNode) {
	if node.ParentChapterID == nil || *node.ParentChapterID != parent.ID {
		got := "null"
		if node.ParentChapterID != nil {
			got = fmt.Sprintf("%q", *node.ParentChapterID)
		}
		verr.add(node.ID, "parentChapterId", "must reference parent %q, got %s", parent.ID, got)
	}
	if node.Depth != parent.Depth+1 {
		verr.add(node.ID, "depth", "must be parent depth + 1 (%d), got %d", parent.Depth+1, node.Depth)
	}
	if len(node.AncestorIDs) != node.Depth {
		verr.add(node.ID, "ancestorIds", "length must equal depth %d, got %d", node.Depth, len(node.AncestorIDs))
	} else if node.Depth > 0 && node.AncestorIDs[len(node.AncestorIDs)-1] != parent.ID {
		verr.add(node.ID, "ancestorIds", "must end with parent %q", parent.ID)
	}
}
