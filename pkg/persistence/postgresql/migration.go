package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT false,
				nodes JSONB NOT NULL DEFAULT '{}',
				connections JSONB NOT NULL DEFAULT '{}',
				trigger_type VARCHAR(50) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE credentials (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				platform VARCHAR(50) NOT NULL,
				data JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_credentials_platform ON credentials(platform);

			CREATE TABLE executions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'paused', 'completed', 'failed')),
				tasks_done INT NOT NULL DEFAULT 0,
				total_tasks INT NOT NULL DEFAULT 0,
				paused_node_id VARCHAR(255),
				failed_node_id VARCHAR(255),
				error TEXT,
				result JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_created_at ON executions(created_at);
		`,
	}
}
