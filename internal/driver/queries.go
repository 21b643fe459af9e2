package driver

const (
	SaveProblemNodeQuery = `
		MERGE (n:Problem {node_id: $node_id})
		SET n.type = $type,
			n.granularity = $granularity,
			n.title = $title,
			n.description = $description,
			n.fields = $fields,
			n.status = $status,
			n.confidence = $confidence,
			n.needs_review = $needs_review,
			n.created_at = $created_at,
			n.cascade_score = $cascade_score,
			n.cross_field_score = $cross_field_score,
			n.bottleneck_score = $bottleneck_score,
			n.leverage_index = $leverage_index,
			n.rank = $rank
		RETURN n.node_id AS node_id
	`

	SaveDependencyEdgeQuery = `
		MATCH (source:Problem {node_id: $source_node_id})
		MATCH (target:Problem {node_id: $target_node_id})
		MERGE (source)-[e:DEPENDS {edge_id: $edge_id}]->(target)
		SET e.type = $type,
			e.strength = $strength,
			e.confidence = $confidence,
			e.mechanism = $mechanism,
			e.created_at = $created_at
		RETURN e.edge_id AS edge_id
	`

	SaveHierarchyEdgeQuery = `
		MATCH (parent:Problem {node_id: $parent_id})
		MATCH (child:Problem {node_id: $child_id})
		MERGE (parent)-[e:HAS_CHILD]->(child)
		RETURN parent.node_id AS node_id
	`

	TopRankedQuery = `
		MATCH (n:Problem)
		WHERE n.rank IS NOT NULL
		RETURN n.node_id AS node_id, n.title AS title, n.leverage_index AS leverage_index, n.rank AS rank
		ORDER BY n.rank ASC
		LIMIT $limit
	`
)
