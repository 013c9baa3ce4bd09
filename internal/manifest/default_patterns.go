package manifest

// DefaultPatternsYAML is the built-in catalog of suspicious
// install-script patterns. Pattern names are stable: the behavioral
// chain detector groups them by name.
const DefaultPatternsYAML = `
version: "1.0"

patterns:
  # Network access
  - pattern: "curl"
    reason: "Downloads content from the internet"
  - pattern: "wget"
    reason: "Downloads content from the internet"
  - pattern: "fetch("
    reason: "Makes network requests during install"
  - pattern: "XMLHttpRequest"
    reason: "Makes network requests during install"
  - pattern: "require('http"
    reason: "Opens HTTP connections during install"
  - pattern: "require('https"
    reason: "Opens HTTPS connections during install"
  - pattern: "nc "
    reason: "Raw network connection (netcat)"
  - pattern: "netcat"
    reason: "Raw network connection (netcat)"

  # Code and shell execution
  - pattern: "eval"
    reason: "Evaluates strings as code"
  - pattern: "exec"
    reason: "Executes external commands"
  - pattern: "spawn"
    reason: "Spawns external processes"
  - pattern: "child_process"
    reason: "Uses the child_process module"
  - pattern: "bash -c"
    reason: "Runs an inline shell command"
  - pattern: "sh -c"
    reason: "Runs an inline shell command"
  - pattern: "| bash"
    reason: "Pipes downloaded content into a shell"
  - pattern: "| sh"
    reason: "Pipes downloaded content into a shell"
  - pattern: "node -e"
    reason: "Runs inline JavaScript"
  - pattern: "python -c"
    reason: "Runs inline Python"
  - pattern: "python3 -c"
    reason: "Runs inline Python"
  - pattern: "perl -e"
    reason: "Runs inline Perl"
  - pattern: "ruby -e"
    reason: "Runs inline Ruby"
  - pattern: "php -r"
    reason: "Runs inline PHP"

  # Credentials and sensitive data
  - pattern: "~/.ssh"
    reason: "Touches SSH keys"
  - pattern: "~/.aws"
    reason: "Touches AWS credentials"
  - pattern: ".npmrc"
    reason: "Touches npm auth tokens"
  - pattern: ".git-credentials"
    reason: "Touches stored git credentials"
  - pattern: "process.env"
    reason: "Reads environment variables"
  - pattern: "/etc/passwd"
    reason: "Reads the system password file"

  # Filesystem
  - pattern: "rm -rf"
    reason: "Recursively deletes files"
  - pattern: "chmod +x"
    reason: "Makes a file executable"
  - pattern: "chmod 777"
    reason: "Makes a file world-writable and executable"
  - pattern: "fs.writeFile"
    reason: "Writes files during install"
  - pattern: "/tmp"
    reason: "Stages files in a temp directory"
  - pattern: "../"
    reason: "Escapes the package directory"

  # Obfuscation
  - pattern: "base64"
    reason: "Encodes or decodes base64 payloads"
  - pattern: "atob("
    reason: "Decodes base64 payloads"

  # Persistence
  - pattern: ".bashrc"
    reason: "Modifies shell startup files"
  - pattern: ".bash_profile"
    reason: "Modifies shell startup files"
  - pattern: ".profile"
    reason: "Modifies shell startup files"
  - pattern: "crontab"
    reason: "Schedules recurring jobs"

  # Background execution
  - pattern: "nohup"
    reason: "Keeps a process running after install"
  - pattern: "daemon"
    reason: "Starts a background daemon"
  - pattern: "disown"
    reason: "Detaches a background process"

  # Mining
  - pattern: "mining"
    reason: "Cryptocurrency mining reference"
  - pattern: "stratum"
    reason: "Mining pool protocol reference"
  - pattern: "crypto"
    reason: "Cryptographic or mining tooling reference"
  - pattern: "worker"
    reason: "Spawns worker processes during install"

  # Misc
  - pattern: "git clone"
    reason: "Pulls external repositories during install"
  - pattern: "ssh-"
    reason: "Manipulates SSH tooling"
`
