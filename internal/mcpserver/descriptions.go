package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to read the results, and which values matter.

func describeExtract() string {
	return `Extracts the structure of every Python class in a repository: methods, attributes, properties and declared base classes.

USE WHEN:
- Getting an overview of the classes a codebase defines
- Looking up where a class lives and what it inherits from
- Comparing the surface area of classes before refactoring

INTERPRETING RESULTS:
- Methods include dunder methods and are listed in source order
- Attributes are class-level assignments plus self.<name> assignments in any method
- Properties are methods decorated with @property, @cached_property or @functools.cached_property
- Parents are base names; dotted bases keep their last segment, subscripted bases such as Generic[T] keep the unparameterized name
- Files that fail to parse are skipped and logged, not fatal

METRICS RETURNED:
- Per class: name, file, parents, method, attribute and property counts
- Totals: classes, files and methods`
}

func describeHierarchy() string {
	return `Groups classes by the base names they declare, giving the direct children of every parent.

USE WHEN:
- Finding every implementation of a base class or interface
- Spotting wide hierarchies with many direct subclasses
- Locating root classes (no in-repo parent) and leaf classes (no children)

INTERPRETING RESULTS:
- Parents are matched by name only; two classes with the same name in different files both count
- External bases such as object, ABC or library classes appear as parents with no in-repo definition
- Passing parent limits the result to that base and errors if nothing declares it
- A class with several bases is a child of each of them

METRICS RETURNED:
- Parent name with its children as file:Name references
- Root and leaf class lists`
}

func describeSimilarity() string {
	return `Compares every pair of sibling classes (same declared parent) by the Jaccard similarity of their method names and attribute names.

USE WHEN:
- Hunting for near-duplicate subclasses that could share a mixin or move code into the base
- Reviewing a plugin or handler hierarchy for copy-paste implementations
- Deciding which siblings to merge

INTERPRETING RESULTS:
- A pair is reported when method OR attribute similarity is strictly above the threshold
- 1.0 means identical name sets; two empty sets count as 0, never as identical
- Only siblings are compared; cousins under different parents never pair
- Lower the threshold (e.g. 0.5) for a wider net, raise it toward 0.9 for clear duplicates

METRICS RETURNED:
- Per parent: class pairs with method_similarity and attribute_similarity
- Totals: parents with at least one pair and pair count`
}

func describeStats() string {
	return `Summarizes a repository's classes: totals, per-class averages, root and leaf counts and the deepest inheritance chain.

USE WHEN:
- Sizing a codebase's object model before deeper analysis
- Finding the files and base classes with the most classes
- Tracking class counts over time

INTERPRETING RESULTS:
- Average methods per class above 20 suggests large classes worth splitting
- Max depth counts in-repo inheritance links only; external bases stop the chain
- Top parents with many children are good candidates for sibling_similarity

METRICS RETURNED:
- Files scanned, files with classes, total classes, methods, attributes, properties
- Averages per class, root and leaf counts, max depth
- Top files and top parents by class count`
}

func describeClusters() string {
	return `Lists semantic clusters of classes from a cluster file produced by kindred cluster --save.

USE WHEN:
- Reviewing groups of classes whose source embeddings are close, across unrelated hierarchies
- Reading the source of one cluster's members side by side
- Feeding a cluster into a refactoring discussion

INTERPRETING RESULTS:
- The first member of each cluster is its seed; every other member has cosine similarity to the seed at or above the threshold used
- Members are not guaranteed to be similar to each other, only to the seed
- Clusters are numbered from 1 in the order they were formed
- Passing cluster returns that cluster's members with their full source

METRICS RETURNED:
- Per member: cluster number, class name, file, bases
- Totals: cluster count and clustered classes`
}
