package config

import (
	"fmt"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// AgentEnv maps go-agents settings to environment variable names. Token,
// Deployment, APIVersion, and AuthType land in the provider options.
type AgentEnv struct {
	ProviderName string
	BaseURL      string
	ModelName    string
	Token        string
	Deployment   string
	APIVersion   string
	AuthType     string
}

var agentEnv = &AgentEnv{
	ProviderName: "DISPATCH_AGENT_PROVIDER_NAME",
	BaseURL:      "DISPATCH_AGENT_BASE_URL",
	ModelName:    "DISPATCH_AGENT_MODEL_NAME",
	Token:        "DISPATCH_AGENT_TOKEN",
	Deployment:   "DISPATCH_AGENT_DEPLOYMENT",
	APIVersion:   "DISPATCH_AGENT_API_VERSION",
	AuthType:     "DISPATCH_AGENT_AUTH_TYPE",
}

// FinalizeAgent layers go-agents defaults under c, applies DISPATCH_AGENT_*
// overrides, and validates the result.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults

	loadAgentEnv(c, agentEnv)
	return validateAgent(c)
}

func loadAgentEnv(c *gaconfig.AgentConfig, env *AgentEnv) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}

	setString(env.ProviderName, &c.Provider.Name)
	setString(env.BaseURL, &c.Provider.BaseURL)
	setString(env.ModelName, &c.Model.Name)

	for key, name := range map[string]string{
		"token":       env.Token,
		"deployment":  env.Deployment,
		"api_version": env.APIVersion,
		"auth_type":   env.AuthType,
	} {
		if v := lookup(name); v != "" {
			c.Provider.Options[key] = v
		}
	}
}

func validateAgent(c *gaconfig.AgentConfig) error {
	switch {
	case c.Name == "":
		return fmt.Errorf("name required")
	case c.Provider == nil || c.Provider.Name == "":
		return fmt.Errorf("provider name required")
	case c.Model == nil:
		return fmt.Errorf("model required")
	}
	return nil
}
