package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はイベント取り込みワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandStatus はクライアントコアでセッションを解決し、画面と保存済みスポットを表示する。
	CommandStatus Command = "status"
	// CommandSignIn はクライアントコアでサインインし、セッションをローカルにキャッシュする。
	CommandSignIn Command = "signin"
	// CommandSignUp はクライアントコアでアカウントを作成してサインインする。
	CommandSignUp Command = "signup"
	// CommandSignOut はキャッシュしたセッションを破棄する。
	CommandSignOut Command = "signout"
	// CommandToggle はスポットの保存状態を反転する。
	CommandToggle Command = "toggle"
)

// clientCommand はデータベースを使わずローカルストアとリモートクライアントで動くコマンドかどうかを返す。
func (c Command) clientCommand() bool {
	switch c {
	case CommandStatus, CommandSignIn, CommandSignUp, CommandSignOut, CommandToggle:
		return true
	}
	return false
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandWorker, CommandServe, CommandMigrate, CommandHealthcheck,
		CommandStatus, CommandSignIn, CommandSignUp, CommandSignOut, CommandToggle:
		return Command(args[0])
	default:
		return CommandServe
	}
}
